//nolint:testpackage // Tests require internal access for thorough testing
package task

import (
	"testing"
	"time"
)

func TestAdjustWeekend(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"saturday moves to monday", "2024-06-01", "2024-06-03"},
		{"sunday moves to monday", "2024-06-02", "2024-06-03"},
		{"wednesday unchanged", "2024-06-05", "2024-06-05"},
		{"monday unchanged", "2024-06-03", "2024-06-03"},
		{"friday unchanged", "2024-06-07", "2024-06-07"},
		{"saturday across month end", "2024-08-31", "2024-09-02"},
		{"sunday across month end", "2024-06-30", "2024-07-01"},
		{"saturday across year end", "2022-12-31", "2023-01-02"},
		{"sunday in leap february", "2032-02-29", "2032-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustWeekend(MustParseDate(tt.in))
			if got.String() != tt.want {
				t.Errorf("AdjustWeekend(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestAdjustWeekendZeroDate(t *testing.T) {
	if got := AdjustWeekend(Date{}); !got.IsZero() {
		t.Errorf("AdjustWeekend(zero) = %s, want zero", got)
	}
}

func TestAdjustWeekendProperties(t *testing.T) {
	start := NewDate(2023, time.January, 1)
	for i := range 3 * 366 {
		d := start.AddDays(i)
		once := AdjustWeekend(d)

		if once.IsWeekend() {
			t.Fatalf("AdjustWeekend(%s) = %s (%s), want a weekday", d, once, once.Weekday())
		}
		if twice := AdjustWeekend(once); !twice.Equal(once) {
			t.Fatalf("AdjustWeekend not idempotent for %s: %s then %s", d, once, twice)
		}
		if !d.IsWeekend() && !once.Equal(d) {
			t.Fatalf("AdjustWeekend(%s) = %s, weekday should be unchanged", d, once)
		}
		if d.IsWeekend() && once.Weekday() != time.Monday {
			t.Fatalf("AdjustWeekend(%s) = %s (%s), want Monday", d, once, once.Weekday())
		}
	}
}
