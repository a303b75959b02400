package timezone

import (
	"errors"
	"testing"
	"time"
)

func TestTableShape(t *testing.T) {
	if Len() != 35 {
		t.Fatalf("Len() = %d, want 35", Len())
	}

	all := All()
	seen := make(map[string]bool)
	for i, e := range all {
		if e.Value != i {
			t.Errorf("entry %d Value = %d", i, e.Value)
		}
		if i > 0 && e.Offset < all[i-1].Offset {
			t.Errorf("entry %d (%s) breaks ascending order", i, e.Abbreviation)
		}
		if e.Offset%(30*time.Minute) != 0 {
			t.Errorf("entry %s offset %v not half-hour aligned", e.Abbreviation, e.Offset)
		}
		if seen[e.Abbreviation] {
			t.Errorf("duplicate abbreviation %s", e.Abbreviation)
		}
		seen[e.Abbreviation] = true
	}

	if all[0].Offset != -12*time.Hour || all[34].Offset != 12*time.Hour {
		t.Errorf("table spans %v..%v, want -12h..+12h", all[0].Offset, all[34].Offset)
	}
}

func TestHalfHourZones(t *testing.T) {
	for _, d := range []time.Duration{
		-3*time.Hour - 30*time.Minute,
		3*time.Hour + 30*time.Minute,
		4*time.Hour + 30*time.Minute,
		9*time.Hour + 30*time.Minute,
	} {
		if _, err := ByOffset(d); err != nil {
			t.Errorf("ByOffset(%v) error = %v", d, err)
		}
	}
}

func TestByIndex(t *testing.T) {
	e, err := ByIndex(21)
	if err != nil {
		t.Fatalf("ByIndex(21) error = %v", err)
	}
	if e.Abbreviation != "MSK" {
		t.Errorf("ByIndex(21).Abbreviation = %s, want MSK", e.Abbreviation)
	}

	for _, i := range []int{-1, 35, 100} {
		if _, err := ByIndex(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("ByIndex(%d) error = %v, want ErrIndexOutOfRange", i, err)
		}
	}
}

func TestByAbbreviation(t *testing.T) {
	e, err := ByAbbreviation("GMT")
	if err != nil {
		t.Fatalf("ByAbbreviation(GMT) error = %v", err)
	}
	if e.Offset != 0 {
		t.Errorf("GMT offset = %v, want 0", e.Offset)
	}

	for _, code := range []string{"msk", "UTC", ""} {
		if _, err := ByAbbreviation(code); !errors.Is(err, ErrUnknownTimezone) {
			t.Errorf("ByAbbreviation(%q) error = %v, want ErrUnknownTimezone", code, err)
		}
	}
}

func TestByOffset(t *testing.T) {
	e, err := ByOffset(3 * time.Hour)
	if err != nil {
		t.Fatalf("ByOffset(3h) error = %v", err)
	}
	if e.Abbreviation != "EAT" {
		t.Errorf("ByOffset(3h) = %s, want first match EAT", e.Abbreviation)
	}

	if _, err := ByOffset(5*time.Hour + 45*time.Minute); !errors.Is(err, ErrUnknownTimezone) {
		t.Errorf("ByOffset(5:45) error = %v, want ErrUnknownTimezone", err)
	}
}

func TestWireValue(t *testing.T) {
	e, _ := ByAbbreviation("MSK")
	if WireValue(e) != "21" {
		t.Errorf("WireValue(MSK) = %s, want 21", WireValue(e))
	}
}

func TestEntryFormatting(t *testing.T) {
	e, _ := ByAbbreviation("NST")
	if e.String() != "(GMT-03:30) NST" {
		t.Errorf("String() = %s", e.String())
	}

	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, e.Location()).Zone()
	if offset != -(3*3600 + 1800) {
		t.Errorf("Location offset = %d", offset)
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"+03:00", 3 * time.Hour},
		{"-3:30", -3*time.Hour - 30*time.Minute},
		{"4", 4 * time.Hour},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseOffset(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseOffset(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}

	for _, bad := range []string{"", "x", "+3:75"} {
		if _, err := ParseOffset(bad); err == nil {
			t.Errorf("ParseOffset(%q) should fail", bad)
		}
	}
}
