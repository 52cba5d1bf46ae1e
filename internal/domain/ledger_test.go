package domain

import (
	"encoding/json"
	"testing"
)

func TestLedgerEntryPatchDecoding(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue string
		wantNil   bool
	}{
		{"absent", `{}`, false, "", true},
		{"null", `{"label": null}`, true, "", true},
		{"value", `{"label": "youth"}`, true, "youth", false},
		{"empty string", `{"label": ""}`, true, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p LedgerEntryPatch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if p.Label.Set != tt.wantSet || (p.Label.Value == nil) != tt.wantNil {
				t.Fatalf("Label = %+v", p.Label)
			}
			if !tt.wantNil && *p.Label.Value != tt.wantValue {
				t.Errorf("Label value = %q, want %q", *p.Label.Value, tt.wantValue)
			}
		})
	}

	var bad LedgerEntryPatch
	if err := json.Unmarshal([]byte(`{"label": 5}`), &bad); err == nil {
		t.Error("numeric label should fail to decode")
	}
}

func TestLedgerEntryPatchApply(t *testing.T) {
	desc, label := "old", "keep"
	e := &LedgerEntry{Description: &desc, Label: &label}

	LedgerEntryPatch{Description: SetString(nil)}.Apply(e)

	if e.Description != nil {
		t.Errorf("Description = %q, want nil", *e.Description)
	}
	if e.Label == nil || *e.Label != "keep" {
		t.Errorf("Label = %v, want unchanged", e.Label)
	}
}
