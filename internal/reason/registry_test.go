package reason

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKnownCodes(t *testing.T) {
	r := Default()

	ac04 := r.Lookup("AC04")
	assert.Equal(t, "Account Closed", ac04.Label)
	assert.True(t, ac04.AutoRefundEligible)

	ms03 := r.Lookup("MS03")
	assert.False(t, ms03.AutoRefundEligible)
}

func TestLookupUnknownCode(t *testing.T) {
	info := Default().Lookup("ZZ99")

	assert.Equal(t, "ZZ99", info.Code)
	assert.False(t, info.AutoRefundEligible)
	assert.Equal(t, "manual_review", info.Action)
}

func TestLookupNormalizesCase(t *testing.T) {
	info := Default().Lookup("ac04")
	assert.True(t, info.AutoRefundEligible)
}
