package util

import (
	"testing"
	"time"
)

func TestParseDayCompact(t *testing.T) {
	got, err := ParseDay("20200227")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2020, 2, 27, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseDayHyphen(t *testing.T) {
	got, err := ParseDay("2020-02-27")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatDay(got) != "20200227" {
		t.Fatalf("round trip mismatch: %s", FormatDay(got))
	}
}

func TestParseDayInvalid(t *testing.T) {
	for _, s := range []string{"", "2020/02/27", "notadate"} {
		if _, err := ParseDay(s); err == nil {
			t.Errorf("ParseDay(%q): expected error", s)
		}
	}
}

func TestDaysBetweenLeapDay(t *testing.T) {
	start := time.Date(2020, 2, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC)
	days := DaysBetween(start, end)
	want := []string{"20200227", "20200228", "20200229", "20200301", "20200302"}
	if len(days) != len(want) {
		t.Fatalf("got %d days want %d", len(days), len(want))
	}
	for i, d := range days {
		if FormatDay(d) != want[i] {
			t.Errorf("day %d: got %s want %s", i, FormatDay(d), want[i])
		}
	}
}

func TestDaysBetweenReversed(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if days := DaysBetween(start, start.AddDate(0, 0, -1)); days != nil {
		t.Fatalf("expected nil, got %d days", len(days))
	}
}

func TestParseIntDefault(t *testing.T) {
	if v := ParseIntDefault("", 7); v != 7 {
		t.Fatalf("empty: got %d", v)
	}
	if v := ParseIntDefault("42", 7); v != 42 {
		t.Fatalf("valid: got %d", v)
	}
	if v := ParseIntDefault("x", 7); v != 7 {
		t.Fatalf("invalid: got %d", v)
	}
}
