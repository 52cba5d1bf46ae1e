package domain

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Category is the fixed classification of a ledger entry.
type Category string

const (
	CategorySales         Category = "sales"
	CategoryExpense       Category = "expense"
	CategoryReimbursement Category = "reimbursement"
	CategoryMinistryFund  Category = "ministry_fund"
	CategoryOffering      Category = "offering"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategorySales,
	CategoryExpense,
	CategoryReimbursement,
	CategoryMinistryFund,
	CategoryOffering,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is shared by ledger entries and reimbursements.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// LedgerEntry is one dated, categorized monetary record.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	EntryDate   civil.Date      `json:"entry_date"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description"`
	Label       *string         `json:"label"`
	ReceiptID   *int64          `json:"receipt_id"`
	CreatedBy   int64           `json:"created_by"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// LedgerEntryPatch carries the optional fields of an admin ledger update.
type LedgerEntryPatch struct {
	Category    *Category        `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Description OptionalString   `json:"description"`
	Label       OptionalString   `json:"label"`
	Status      *Status          `json:"status"`
	EntryDate   *civil.Date      `json:"entry_date"`
}

// Apply copies every supplied field of p onto e.
func (p LedgerEntryPatch) Apply(e *LedgerEntry) {
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Amount != nil {
		e.Amount = RoundMoney(*p.Amount)
	}
	if p.Description.Set {
		e.Description = p.Description.Value
	}
	if p.Label.Set {
		e.Label = p.Label.Value
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.EntryDate != nil {
		e.EntryDate = *p.EntryDate
	}
}

// OptionalString tells an absent JSON field apart from an explicit null.
// Set is true whenever the key was present; Value is nil for null.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns a present OptionalString holding v, which may be nil.
func SetString(v *string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// RoundMoney rounds an amount to two fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Reimbursement is a worker's request to be paid back, linked to exactly
// one ledger entry created in the same transaction.
type Reimbursement struct {
	ID            int64        `json:"id"`
	LedgerEntryID int64        `json:"ledger_entry_id"`
	RequestedBy   int64        `json:"requested_by"`
	RequesterName *string      `json:"requester_name"`
	ApprovedBy    *int64       `json:"approved_by"`
	ApproverName  *string      `json:"approver_name"`
	Status        Status       `json:"status"`
	Notes         *string      `json:"notes"`
	PayoutDate    *civil.Date  `json:"payout_date"`
	CreatedAt     time.Time    `json:"created_at"`
	LedgerEntry   *LedgerEntry `json:"ledger_entry"`
}

// Resolution is the terminal transition applied to a pending reimbursement
// and its ledger entry.
type Resolution struct {
	Status     Status
	ApproverID int64
	PayoutDate *civil.Date
}
