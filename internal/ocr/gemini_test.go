package ocr

import (
	"context"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```\n", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":1}\nThanks", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeExtraction(t *testing.T) {
	raw := "```json\n" + `{
  "merchant_name": "Corner Shop",
  "transaction_date": "2024-03-01",
  "total_amount": 12.5,
  "subtotal": null,
  "tax": null,
  "items": [
    {"name": "Rice", "quantity": 2, "price": 4.5},
    {"name": "Oil", "quantity": "three", "price": "3.50"}
  ],
  "payment_method": null,
  "category_suggestion": "groceries"
}` + "\n```"

	got, err := DecodeExtraction(raw)
	if err != nil {
		t.Fatalf("DecodeExtraction() error = %v", err)
	}
	if got.MerchantName == nil || *got.MerchantName != "Corner Shop" {
		t.Errorf("merchant = %v", got.MerchantName)
	}
	if got.TotalAmount == nil || *got.TotalAmount != 12.5 {
		t.Errorf("total = %v", got.TotalAmount)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if got.Items[0].Quantity == nil || *got.Items[0].Quantity != 2 {
		t.Errorf("first quantity = %v", got.Items[0].Quantity)
	}
	if got.Items[1].Quantity != nil {
		t.Errorf("non-numeric quantity should be dropped, got %v", *got.Items[1].Quantity)
	}
	if got.Items[1].Price == nil || *got.Items[1].Price != 3.5 {
		t.Errorf("quoted price = %v", got.Items[1].Price)
	}
}

func TestDecodeExtraction_Invalid(t *testing.T) {
	if _, err := DecodeExtraction("no json here"); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnconfigured(t *testing.T) {
	ex, err := Unconfigured{}.Extract(context.Background(), nil, "image/png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ex.Error == "" || ex.CategorySuggestion == nil || *ex.CategorySuggestion != "expense" {
		t.Errorf("unexpected fallback %+v", ex)
	}
	if _, err := (Unconfigured{}).Embed(context.Background(), "x"); err == nil {
		t.Error("Embed() should fail without a key")
	}
}
