package util

import (
	"testing"
	"time"
)

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC))
	if got.Format(DateLayout) != "2025-02-01" {
		t.Fatalf("unexpected month start %v", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 2, 27, 18, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 4 {
		t.Fatalf("expected 4 days across leap day, got %d", got)
	}
}
