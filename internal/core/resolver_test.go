package core

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		object     string
		wantOK     bool
		wantEntity string
		wantTable  string
	}{
		{"payments lower", "2025/payments_batch.csv", true, "payments", "stg_payments"},
		{"payments upper", "raw/PAYMENTS.csv", true, "payments", "stg_payments"},
		{"payments mixed", "daily_Payments_2024-01-01.csv", true, "payments", "stg_payments"},
		{"orders", "raw/orders.csv", true, "orders", "stg_orders"},
		{"orders mixed case", "exports/Orders-Q3.CSV", true, "orders", "stg_orders"},
		{"both prefers payments", "orders_and_payments.csv", true, "payments", "stg_payments"},
		{"neither", "raw/providers.csv", false, "", ""},
		{"empty", "", false, "", ""},
		{"singular does not match", "payment.csv", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.object)
			if got.Resolved() != tt.wantOK {
				t.Fatalf("Resolve(%q).Resolved() = %v, want %v", tt.object, got.Resolved(), tt.wantOK)
			}
			if got.Entity != tt.wantEntity {
				t.Errorf("Resolve(%q).Entity = %q, want %q", tt.object, got.Entity, tt.wantEntity)
			}
			if got.Table != tt.wantTable {
				t.Errorf("Resolve(%q).Table = %q, want %q", tt.object, got.Table, tt.wantTable)
			}
		})
	}
}

func TestResolver_CustomRules(t *testing.T) {
	r := NewResolver([]ResolveRule{
		{Marker: "", Entity: "ignored"},
		{Marker: "REFUND", Entity: "refunds", Table: "stg_refunds"},
	})

	if got := r.Resolve("x/refunds.csv"); !got.Resolved() || got.Entity != "refunds" {
		t.Errorf("Resolve(refunds) = %+v, want refunds", got)
	}
	if got := r.Resolve("anything.csv"); got.Resolved() {
		t.Errorf("empty marker should never match, got %+v", got)
	}
}

func TestUnresolvedIsZero(t *testing.T) {
	var zero Resolution
	if zero != Unresolved {
		t.Error("zero Resolution should equal Unresolved")
	}
	if Unresolved.Resolved() {
		t.Error("Unresolved.Resolved() = true, want false")
	}
}
