package incremental_test

import (
	"testing"

	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/incremental"
)

func ptr(v int64) *int64 {
	return &v
}

func TestCompute_FirstReadingHasNoDeltas(t *testing.T) {
	readings := []incremental.Counters{
		{Total: ptr(100), Black: ptr(80), Colour: ptr(20)},
	}

	deltas := incremental.Compute(readings)

	if len(deltas) != 1 {
		t.Fatalf("Expected 1 delta, got %d", len(deltas))
	}
	if deltas[0].Total != nil || deltas[0].Black != nil || deltas[0].Colour != nil {
		t.Error("Expected all-nil deltas for the first reading")
	}
}

func TestCompute_MonotonicCountersYieldPairwiseDifferences(t *testing.T) {
	readings := []incremental.Counters{
		{Total: ptr(100)},
		{Total: ptr(150)},
		{Total: ptr(175)},
	}

	deltas := incremental.Compute(readings)

	if deltas[0].Total != nil {
		t.Error("Expected nil delta for first reading")
	}
	if deltas[1].Total == nil || *deltas[1].Total != 50 {
		t.Errorf("Expected delta 50, got %v", deltas[1].Total)
	}
	if deltas[2].Total == nil || *deltas[2].Total != 25 {
		t.Errorf("Expected delta 25, got %v", deltas[2].Total)
	}
}

func TestCompute_CounterReset(t *testing.T) {
	// 100 -> 150 -> 90 -> 140: the reset pair is unknown, not negative
	readings := []incremental.Counters{
		{Total: ptr(100)},
		{Total: ptr(150)},
		{Total: ptr(90)},
		{Total: ptr(140)},
	}

	deltas := incremental.Compute(readings)

	if deltas[0].Total != nil {
		t.Error("Expected nil delta for first reading")
	}
	if deltas[1].Total == nil || *deltas[1].Total != 50 {
		t.Errorf("Expected delta 50, got %v", deltas[1].Total)
	}
	if deltas[2].Total != nil {
		t.Errorf("Expected nil delta across the reset, got %d", *deltas[2].Total)
	}
	if deltas[3].Total == nil || *deltas[3].Total != 50 {
		t.Errorf("Expected delta 50 after the reset, got %v", deltas[3].Total)
	}
}

func TestCompute_ResetIsPerCounter(t *testing.T) {
	// The black counter resets; total keeps counting normally.
	readings := []incremental.Counters{
		{Total: ptr(1000), Black: ptr(500)},
		{Total: ptr(1100), Black: ptr(20)},
	}

	deltas := incremental.Compute(readings)

	if deltas[1].Total == nil || *deltas[1].Total != 100 {
		t.Errorf("Expected total delta 100, got %v", deltas[1].Total)
	}
	if deltas[1].Black != nil {
		t.Errorf("Expected nil black delta across the reset, got %d", *deltas[1].Black)
	}
}

func TestCompute_MissingCounterYieldsUnknown(t *testing.T) {
	readings := []incremental.Counters{
		{Total: ptr(100), Colour: nil},
		{Total: ptr(130), Colour: ptr(40)},
		{Total: nil, Colour: ptr(55)},
	}

	deltas := incremental.Compute(readings)

	if deltas[1].Colour != nil {
		t.Error("Expected nil colour delta when the previous value is unknown")
	}
	if deltas[1].Total == nil || *deltas[1].Total != 30 {
		t.Errorf("Expected total delta 30, got %v", deltas[1].Total)
	}
	if deltas[2].Total != nil {
		t.Error("Expected nil total delta when the current value is unknown")
	}
	if deltas[2].Colour == nil || *deltas[2].Colour != 15 {
		t.Errorf("Expected colour delta 15, got %v", deltas[2].Colour)
	}
}

func TestCompute_ZeroDeltaIsValid(t *testing.T) {
	readings := []incremental.Counters{
		{Total: ptr(100)},
		{Total: ptr(100)},
	}

	deltas := incremental.Compute(readings)

	if deltas[1].Total == nil || *deltas[1].Total != 0 {
		t.Errorf("Expected delta 0 for an unchanged counter, got %v", deltas[1].Total)
	}
}

func TestCompute_EmptyInput(t *testing.T) {
	deltas := incremental.Compute(nil)

	if len(deltas) != 0 {
		t.Errorf("Expected no deltas for empty input, got %d", len(deltas))
	}
}
