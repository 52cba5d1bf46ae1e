package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Receipt is an uploaded image with the fields extracted from it.
type Receipt struct {
	ID              int64            `json:"id"`
	UploadedBy      int64            `json:"uploaded_by"`
	UploadedByName  *string          `json:"uploaded_by_name"`
	ImagePath       string           `json:"image_path"`
	OCRRaw          json.RawMessage  `json:"ocr_raw"`
	MerchantName    *string          `json:"merchant_name"`
	TransactionDate *civil.Date      `json:"transaction_date"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	VectorID        *string          `json:"vector_id"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ReceiptPatch carries the correctable receipt fields.
type ReceiptPatch struct {
	MerchantName    *string          `json:"merchant_name"`
	TransactionDate *civil.Date      `json:"transaction_date"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
}

// ScoredReceipt is a search hit.
type ScoredReceipt struct {
	Receipt
	SearchScore float64 `json:"search_score"`
}

// ReceiptEmbedding is the stored vector for one receipt.
type ReceiptEmbedding struct {
	ReceiptID int64
	Vector    []float32
}

// LineItem is one purchased item extracted from a receipt image.
type LineItem struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

// UnmarshalJSON accepts numbers that arrive quoted and drops values that
// are not numbers at all, leaving the field nil.
func (li *LineItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Quantity json.RawMessage `json:"quantity"`
		Price    json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	li.Name = raw.Name
	li.Quantity = lenientNumber(raw.Quantity)
	li.Price = lenientNumber(raw.Price)
	return nil
}

func lenientNumber(raw json.RawMessage) *float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ReceiptExtraction is the structured result of reading a receipt image.
type ReceiptExtraction struct {
	MerchantName       *string    `json:"merchant_name"`
	TransactionDate    *string    `json:"transaction_date"`
	TotalAmount        *float64   `json:"total_amount"`
	Subtotal           *float64   `json:"subtotal"`
	Tax                *float64   `json:"tax"`
	Items              []LineItem `json:"items"`
	PaymentMethod      *string    `json:"payment_method"`
	CategorySuggestion *string    `json:"category_suggestion"`
	Error              string     `json:"error,omitempty"`
}
