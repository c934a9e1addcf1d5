package record

import (
	"reflect"
	"testing"
)

func TestValid(t *testing.T) {
	nonZero := NewSet("zTotTran", "priceMin")

	tests := []struct {
		name  string
		field string
		value string
		want  bool
	}{
		{"plain value", "priceMax", "17350", true},
		{"empty value", "priceMax", "", false},
		{"whitespace only", "priceMax", "   ", false},
		{"zero outside constraint set", "priceMax", "0", true},
		{"zero in constraint set", "zTotTran", "0", false},
		{"padded zero in constraint set", "zTotTran", " 0 ", false},
		{"nonzero in constraint set", "zTotTran", "5", true},
		{"negative in constraint set", "priceMin", "-3", true},
		{"non-numeric in constraint set", "zTotTran", "n/a", true},
		{"decimal zero in constraint set", "zTotTran", "0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.field, tt.value, nonZero); got != tt.want {
				t.Errorf("Valid(%q, %q) = %v, want %v", tt.field, tt.value, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	rec := New(KeySharedID, 42)
	if got := rec[KeySharedID]; got != "42" {
		t.Errorf("New() seeded SharedID = %q, want %q", got, "42")
	}
	if len(rec) != 1 {
		t.Errorf("New() record has %d keys, want 1", len(rec))
	}

	rec = New("BatchNo", 7)
	if got := rec["BatchNo"]; got != "7" {
		t.Errorf("New() with custom column seeded %q, want %q", got, "7")
	}
}

func TestMerge_Success(t *testing.T) {
	rec := Record{KeySharedID: "3", "priceMin": "old"}
	incoming := map[string]string{"priceMin": "100", "priceMax": "200"}

	if !rec.Merge(incoming, nil) {
		t.Fatal("Merge() = false, want true")
	}

	want := Record{KeySharedID: "3", "priceMin": "100", "priceMax": "200"}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("Merge() result = %v, want %v", rec, want)
	}
}

func TestMerge_AllOrNothing(t *testing.T) {
	rec := Record{KeySharedID: "3"}
	incoming := map[string]string{"priceMin": "100", "priceMax": ""}

	if rec.Merge(incoming, nil) {
		t.Fatal("Merge() = true, want false")
	}

	// No partial update may leak into the record.
	want := Record{KeySharedID: "3"}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("record after rejected merge = %v, want %v", rec, want)
	}
}

func TestMerge_EmptyIncoming(t *testing.T) {
	for _, incoming := range []map[string]string{nil, {}} {
		rec := Record{KeySharedID: "3"}
		if rec.Merge(incoming, nil) {
			t.Errorf("Merge(%v) = true, want false", incoming)
		}
		if !reflect.DeepEqual(rec, Record{KeySharedID: "3"}) {
			t.Errorf("record changed by empty merge: %v", rec)
		}
	}
}

func TestMerge_NonZeroConstraint(t *testing.T) {
	nonZero := NewSet("zTotTran")

	rec := Record{KeySharedID: "3"}
	if rec.Merge(map[string]string{"zTotTran": "0", "priceMin": "100"}, nonZero) {
		t.Fatal("Merge() accepted a zero in the constraint set")
	}
	if len(rec) != 1 {
		t.Errorf("record after rejected merge has %d keys, want 1", len(rec))
	}

	if !rec.Merge(map[string]string{"zTotTran": "5", "priceMin": "100"}, nonZero) {
		t.Fatal("Merge() rejected valid data")
	}
}

func TestClone(t *testing.T) {
	rec := Record{KeySharedID: "1", "priceMin": "100"}
	clone := rec.Clone()

	clone["priceMin"] = "999"
	if rec["priceMin"] != "100" {
		t.Error("mutating the clone changed the original")
	}
}

func TestSet(t *testing.T) {
	s := NewSet("a", "b")
	if !s.Has("a") || !s.Has("b") {
		t.Error("Has() = false for members")
	}
	if s.Has("c") {
		t.Error("Has() = true for non-member")
	}
	if NewSet().Has("a") {
		t.Error("empty set claims membership")
	}
}
