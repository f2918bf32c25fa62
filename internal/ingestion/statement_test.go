package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatementCSV = `entry_id,account_id,kind,value_date,currency,amount,direction,reference
S1,NOSTRO-EUR,nostro,2026-08-21,EUR,15000.00,CR,RETURN OF FUNDS /REF/E2E-88401/UETR/uetr-1/
S2,NOSTRO-EUR,nostro,2026-08-22,EUR,1200.00,DR,OUTWARD PAYMENT
`

const sampleStatementPipe = `ENTRY|ACCOUNT|VALUE_DATE|CCY|AMOUNT|DRCR|NARRATIVE
P1|NOSTRO-USD|2026-08-24|USD|22910.00|C|RETURN OF FUNDS /REF/E2E-88437/UETR/uetr-2/
`

const sampleStatementJSON = `{
  "statement_id": "ST-2026-08",
  "account_id": "NOSTRO-GBP",
  "kind": "nostro",
  "entries": [
    {"seq": 1, "value_date": "2026-08-26", "currency": "GBP",
     "amount": "5400.00", "direction": "CR",
     "reference": "RETURN OF FUNDS /REF/E2E-88452/UETR/uetr-3/"}
  ]
}`

func TestParseStatementCSV(t *testing.T) {
	entries, err := ParseStatementCSV([]byte(sampleStatementCSV))

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "S1", entries[0].ID)
	assert.Equal(t, "CR", entries[0].Direction)
	assert.Equal(t, "15000.00", entries[0].Amount)
	assert.Equal(t, "DR", entries[1].Direction)
}

func TestParseStatementCSVBadAmount(t *testing.T) {
	bad := `entry_id,account_id,kind,value_date,currency,amount,direction,reference
S1,NOSTRO-EUR,nostro,2026-08-21,EUR,not-a-number,CR,REF
`
	_, err := ParseStatementCSV([]byte(bad))
	assert.Error(t, err)
}

func TestParseStatementPipe(t *testing.T) {
	entries, err := ParseStatementPipe([]byte(sampleStatementPipe))

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "P1", entries[0].ID)
	assert.Equal(t, "nostro", entries[0].Kind, "legacy feed rows are nostro entries")
	assert.Equal(t, "CR", entries[0].Direction, "single-letter direction is normalized")
}

func TestParseStatementJSON(t *testing.T) {
	entries, err := ParseStatementJSON([]byte(sampleStatementJSON))

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ST-2026-08-0001", entries[0].ID)
	assert.Equal(t, "NOSTRO-GBP", entries[0].AccountID)
}

func TestParseStatementJSONMissingID(t *testing.T) {
	_, err := ParseStatementJSON([]byte(`{"entries": []}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
}
