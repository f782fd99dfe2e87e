package bmsdate_test

import (
	"testing"
	"time"

	"github.com/final-space-dev/jetline-machines-automation-sub000/tools/bmsdate"
)

func TestParse_Date(t *testing.T) {
	got, err := bmsdate.Parse("2026-03-14")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a parsed time")
	}

	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParse_DateTime(t *testing.T) {
	got, err := bmsdate.Parse("2026-03-14 09:30:15")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 14, 9, 30, 15, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestParse_ZeroDateIsNilNotError(t *testing.T) {
	for _, s := range []string{"0000-00-00", "0000-00-00 00:00:00", ""} {
		got, err := bmsdate.Parse(s)
		if err != nil {
			t.Errorf("Expected no error for '%s', got: %v", s, err)
		}
		if got != nil {
			t.Errorf("Expected nil time for '%s', got %v", s, got)
		}
	}
}

func TestParse_Garbage(t *testing.T) {
	_, err := bmsdate.Parse("not a date")
	if err == nil {
		t.Error("Expected error for unparseable input")
	}
}
