package utils

import (
	"testing"
	"time"
)

func TestParseAnyMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "canonical",
			input: "2024-02",
			want:  "2024-02",
		},
		{
			name:  "legacy",
			input: "02-2024",
			want:  "2024-02",
		},
		{
			name:  "legacy december",
			input: "12-2023",
			want:  "2023-12",
		},
		{
			name:    "garbage",
			input:   "2024/02",
			wantErr: true,
		},
		{
			name:    "month out of range",
			input:   "13-2024",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mk, err := ParseAnyMonthKey(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.input, mk)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(mk) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, mk)
			}
		})
	}
}

func TestMonthKeyLegacyRoundTrip(t *testing.T) {
	mk, err := ParseLegacyMonthKey("03-2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mk.Legacy() != "03-2024" {
		t.Fatalf("expected 03-2024, got %s", mk.Legacy())
	}
}

func TestMonthKeyPrevNext(t *testing.T) {
	mk := MonthKey("2024-01")
	if prev := mk.Prev(); string(prev) != "2023-12" {
		t.Fatalf("expected 2023-12, got %s", prev)
	}
	if next := mk.Next(); string(next) != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", next)
	}
}

func TestMonthsBetween(t *testing.T) {
	months := MonthsBetween(MonthKey("2024-01"), MonthKey("2024-03"))
	if len(months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(months))
	}
	want := []string{"2024-01", "2024-02", "2024-03"}
	for i, m := range months {
		if string(m) != want[i] {
			t.Fatalf("expected %s at %d, got %s", want[i], i, m)
		}
	}

	if got := MonthsBetween(MonthKey("2024-05"), MonthKey("2024-04")); len(got) != 0 {
		t.Fatalf("expected empty walk, got %v", got)
	}
}

func TestMonthKeyOfAndDateKey(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)
	if mk := MonthKeyOf(ts); string(mk) != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", mk)
	}
	if dk := DateKey(ts); dk != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", dk)
	}
}
