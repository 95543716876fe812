package model_test

import (
	"testing"
	"time"

	"github.com/spendah/spendah-backend/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestFrequency_NextExpected tests schedule advancement.
//
// WHY: Renewal previews and annual-charge warnings are driven entirely by
// NextExpected. Month-end anchors must clamp instead of rolling into the
// following month the way time.AddDate normalizes.
func TestFrequency_NextExpected(t *testing.T) {
	tests := []struct {
		name      string
		frequency model.Frequency
		lastSeen  time.Time
		want      time.Time
	}{
		{"weekly advances 7 days", model.FrequencyWeekly, date(2024, 1, 15), date(2024, 1, 22)},
		{"biweekly advances 14 days", model.FrequencyBiweekly, date(2024, 1, 15), date(2024, 1, 29)},
		{"monthly advances one calendar month", model.FrequencyMonthly, date(2024, 1, 15), date(2024, 2, 15)},
		{"monthly clamps Jan 31 to Feb 28", model.FrequencyMonthly, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly clamps Jan 31 to Feb 28 in leap years too", model.FrequencyMonthly, date(2024, 1, 31), date(2024, 2, 28)},
		{"monthly keeps day 31 when target month has it", model.FrequencyMonthly, date(2024, 2, 29), date(2024, 3, 29)},
		{"quarterly advances three months", model.FrequencyQuarterly, date(2024, 1, 15), date(2024, 4, 15)},
		{"quarterly crosses year boundary", model.FrequencyQuarterly, date(2024, 11, 15), date(2025, 2, 15)},
		{"yearly advances twelve months", model.FrequencyYearly, date(2024, 3, 1), date(2025, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.frequency.NextExpected(tt.lastSeen)
			if !got.Equal(tt.want) {
				t.Errorf("%s.NextExpected(%s) = %s, want %s",
					tt.frequency, tt.lastSeen.Format("2006-01-02"),
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

// TestFrequency_NextExpected_Monotonic tests repeated advancement.
//
// WHY: Linking new occurrences must always move the schedule forward.
// A monthly anchor on the 15th has to land on the 15th of each following
// month with no drift.
func TestFrequency_NextExpected_Monotonic(t *testing.T) {
	current := date(2024, 1, 15)
	want := []time.Time{date(2024, 2, 15), date(2024, 3, 15), date(2024, 4, 15)}

	for i, expected := range want {
		next := model.FrequencyMonthly.NextExpected(current)
		if !next.Equal(expected) {
			t.Fatalf("Step %d: expected %s, got %s", i+1,
				expected.Format("2006-01-02"), next.Format("2006-01-02"))
		}
		if !next.After(current) {
			t.Fatalf("Step %d: schedule did not advance (%s -> %s)", i+1,
				current.Format("2006-01-02"), next.Format("2006-01-02"))
		}
		current = next
	}
}

// TestFrequency_YearlyOccurrences tests the per-year weights used for cost
// projection.
func TestFrequency_YearlyOccurrences(t *testing.T) {
	tests := []struct {
		frequency model.Frequency
		want      int
	}{
		{model.FrequencyWeekly, 52},
		{model.FrequencyBiweekly, 26},
		{model.FrequencyMonthly, 12},
		{model.FrequencyQuarterly, 4},
		{model.FrequencyYearly, 1},
		{model.Frequency("unknown"), 12},
	}

	for _, tt := range tests {
		if got := tt.frequency.YearlyOccurrences(); got != tt.want {
			t.Errorf("%s.YearlyOccurrences() = %d, want %d", tt.frequency, got, tt.want)
		}
	}
}
