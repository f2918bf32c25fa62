package ingestion

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianbank/returns-engine/internal/domain"
)

// ErrMissingField marks a required-field validation failure. Cases built
// from records failing validation are marked failed and never processed.
var ErrMissingField = errors.New("missing required field")

// The element structures below match by local name only, so any
// pacs.004/pacs.008 namespace version parses.

type isoAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type isoParty struct {
	Name  string `xml:"Nm"`
	OrgID string `xml:"Id>OrgId>Othr>Id"`
}

type isoAccount struct {
	IBAN  string `xml:"Id>IBAN"`
	Other string `xml:"Id>Othr>Id"`
}

func (a isoAccount) ref() string {
	if a.IBAN != "" {
		return strings.TrimSpace(a.IBAN)
	}
	return strings.TrimSpace(a.Other)
}

type pacs008Document struct {
	XMLName xml.Name `xml:"Document"`
	Tx      struct {
		PmtID struct {
			EndToEndID string `xml:"EndToEndId"`
			TxID       string `xml:"TxId"`
			UETR       string `xml:"UETR"`
		} `xml:"PmtId"`
		Amount   isoAmount  `xml:"IntrBkSttlmAmt"`
		Debtor   isoParty   `xml:"Dbtr"`
		DbtrAcct isoAccount `xml:"DbtrAcct"`
	} `xml:"FIToFICstmrCdtTrf>CdtTrfTxInf"`
}

type pacs004Document struct {
	XMLName xml.Name `xml:"Document"`
	Tx      struct {
		OrgnlEndToEndID string    `xml:"OrgnlEndToEndId"`
		OrgnlTxID       string    `xml:"OrgnlTxId"`
		OrgnlUETR       string    `xml:"OrgnlUETR"`
		ReturnedAmount  isoAmount `xml:"RtrdIntrBkSttlmAmt"`
		ReturnReason    struct {
			Code       string `xml:"Rsn>Cd"`
			Additional string `xml:"AddtlInf"`
		} `xml:"RtrRsnInf"`
		Creditor   isoParty   `xml:"RtrChain>Cdtr>Pty"`
		CdtrFlat   isoParty   `xml:"Cdtr"`
		CdtrAcct   isoAccount `xml:"CdtrAcct"`
		DbtrAcct   isoAccount `xml:"DbtrAcct"`
		CdtrAgtBIC string     `xml:"CdtrAgt>FinInstnId>BICFI"`
	} `xml:"PmtRtr>TxInf"`
}

// ParseOriginal parses a pacs.008 payload into an OriginalRecord.
func ParseOriginal(data []byte) (domain.OriginalRecord, error) {
	var doc pacs008Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return domain.OriginalRecord{}, fmt.Errorf("parse pacs.008: %w", err)
	}

	amount, err := parseAmount(doc.Tx.Amount.Value)
	if err != nil {
		return domain.OriginalRecord{}, fmt.Errorf("pacs.008 amount: %w", err)
	}

	uetr := strings.TrimSpace(doc.Tx.PmtID.UETR)
	if uetr == "" {
		uetr = strings.TrimSpace(doc.Tx.PmtID.TxID)
	}

	debtorAcct := doc.Tx.DbtrAcct.ref()
	if debtorAcct == "" {
		debtorAcct = strings.TrimSpace(doc.Tx.Debtor.OrgID)
	}

	rec := domain.OriginalRecord{
		EndToEndID:    strings.TrimSpace(doc.Tx.PmtID.EndToEndID),
		UETR:          uetr,
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(doc.Tx.Amount.Ccy)),
		DebtorName:    strings.TrimSpace(doc.Tx.Debtor.Name),
		DebtorAccount: debtorAcct,
	}
	return rec, ValidateOriginal(rec)
}

// ParseReturn parses a pacs.004 payload into a ReturnRecord.
func ParseReturn(data []byte) (domain.ReturnRecord, error) {
	var doc pacs004Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return domain.ReturnRecord{}, fmt.Errorf("parse pacs.004: %w", err)
	}

	amount, err := parseAmount(doc.Tx.ReturnedAmount.Value)
	if err != nil {
		return domain.ReturnRecord{}, fmt.Errorf("pacs.004 amount: %w", err)
	}

	uetr := strings.TrimSpace(doc.Tx.OrgnlUETR)
	if uetr == "" {
		uetr = strings.TrimSpace(doc.Tx.OrgnlTxID)
	}

	creditorName := strings.TrimSpace(doc.Tx.Creditor.Name)
	if creditorName == "" {
		creditorName = strings.TrimSpace(doc.Tx.CdtrFlat.Name)
	}

	rec := domain.ReturnRecord{
		EndToEndID:       strings.TrimSpace(doc.Tx.OrgnlEndToEndID),
		UETR:             uetr,
		Amount:           amount,
		Currency:         strings.ToUpper(strings.TrimSpace(doc.Tx.ReturnedAmount.Ccy)),
		ReasonCode:       strings.TrimSpace(doc.Tx.ReturnReason.Code),
		ReasonInfo:       strings.TrimSpace(doc.Tx.ReturnReason.Additional),
		CreditorName:     creditorName,
		CreditorAccount:  doc.Tx.CdtrAcct.ref(),
		DebtorAccount:    doc.Tx.DbtrAcct.ref(),
		CreditorAgentBIC: strings.TrimSpace(doc.Tx.CdtrAgtBIC),
	}
	return rec, ValidateReturn(rec)
}

// ValidateReturn checks the fields a case cannot be opened without.
func ValidateReturn(r domain.ReturnRecord) error {
	switch {
	case r.EndToEndID == "":
		return fmt.Errorf("%w: return end-to-end id", ErrMissingField)
	case r.UETR == "":
		return fmt.Errorf("%w: return UETR", ErrMissingField)
	case r.Currency == "":
		return fmt.Errorf("%w: returned currency", ErrMissingField)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: returned amount", ErrMissingField)
	case r.ReasonCode == "":
		return fmt.Errorf("%w: return reason code", ErrMissingField)
	}
	return nil
}

// ValidateOriginal checks the required fields of the original transfer.
func ValidateOriginal(o domain.OriginalRecord) error {
	switch {
	case o.EndToEndID == "":
		return fmt.Errorf("%w: original end-to-end id", ErrMissingField)
	case o.UETR == "":
		return fmt.Errorf("%w: original UETR", ErrMissingField)
	case o.Currency == "":
		return fmt.Errorf("%w: original currency", ErrMissingField)
	case !o.Amount.IsPositive():
		return fmt.Errorf("%w: original amount", ErrMissingField)
	case o.DebtorAccount == "":
		return fmt.Errorf("%w: original debtor account", ErrMissingField)
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount", ErrMissingField)
	}
	return decimal.NewFromString(s)
}
