package capture

import (
	"testing"
)

func TestEventKind_Valid(t *testing.T) {
	tests := []struct {
		kind  EventKind
		valid bool
	}{
		{KindInsert, true},
		{KindUpdate, true},
		{KindDelete, true},
		{KindDDL, true},
		{EventKind("truncate"), false},
		{EventKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestSourceKind_Valid(t *testing.T) {
	tests := []struct {
		kind  SourceKind
		valid bool
	}{
		{SourcePostgres, true},
		{SourceMySQL, true},
		{SourceKind("oracle"), false},
		{SourceKind(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestEvent_FullyQualifiedTable(t *testing.T) {
	ev := Event{Schema: "public", Table: "orders"}
	if got := ev.FullyQualifiedTable(); got != "public.orders" {
		t.Errorf("FullyQualifiedTable() = %q, want %q", got, "public.orders")
	}
}

func TestEvent_Images(t *testing.T) {
	ev := Event{
		Kind:  KindUpdate,
		After: map[string]any{"id": 1, "name": "alice"},
	}
	if ev.HasBefore() {
		t.Error("expected no before image")
	}
	if !ev.HasAfter() {
		t.Error("expected an after image")
	}
}
