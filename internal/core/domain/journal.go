package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySide distinguishes the two legs of a double-entry line.
type EntrySide string

const (
	EntryDebit  EntrySide = "debit"
	EntryCredit EntrySide = "credit"
)

// JournalEntry is one line of a generated general-ledger journal. Within a
// generation run the debits and credits are guaranteed to balance.
type JournalEntry struct {
	Side        EntrySide       `json:"side"`
	PeriodName  string          `json:"periodName"`
	SourceName  string          `json:"sourceName"`
	FundOrg     string          `json:"fundOrg"` // raw fund/org tag, empty on credit lines
	Fund        string          `json:"fund"`
	Orgn        string          `json:"orgn"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ReferenceID string          `json:"referenceID"`

	// Components holds the named groups captured from the fund/org pattern,
	// empty when the tag did not parse.
	Components map[string]string `json:"components"`
}

// JournalExportLog records one journal generation run for audit.
type JournalExportLog struct {
	ExportID   string          `json:"exportID"` // Primary Key (UUID)
	PeriodID   string          `json:"periodID"`
	Mode       string          `json:"mode"`
	EntryCount int             `json:"entryCount"`
	TotalDebit decimal.Decimal `json:"totalDebit"`
	Actor      string          `json:"actor"`
	ExportedAt time.Time       `json:"exportedAt"`
}
