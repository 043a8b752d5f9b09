package llm

import (
	"errors"
	"testing"
)

func TestBudgetReserveStopsAtCeiling(t *testing.T) {
	b := NewBudget(0.02, 0.015)

	if err := b.Reserve(1); err != nil {
		t.Fatalf("first Reserve failed: %v", err)
	}
	if b.Spent() != 0.015 {
		t.Fatalf("Spent() = %f, want 0.015", b.Spent())
	}

	err := b.Reserve(1)
	if err == nil {
		t.Fatal("second Reserve should exceed the ceiling")
	}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("error = %v, want ErrBudgetExceeded", err)
	}
	if b.Spent() != 0.015 {
		t.Fatalf("rejected Reserve mutated spend: %f", b.Spent())
	}
}

func TestBudgetReserveMultipleCalls(t *testing.T) {
	b := NewBudget(1.0, 0.1)

	if err := b.Reserve(5); err != nil {
		t.Fatalf("Reserve(5) failed: %v", err)
	}
	if b.Spent() < 0.49 || b.Spent() > 0.51 {
		t.Fatalf("Spent() = %f, want 0.5", b.Spent())
	}
	if err := b.Reserve(6); err == nil {
		t.Fatal("Reserve(6) should exceed remaining budget")
	}
	if err := b.Reserve(5); err != nil {
		t.Fatalf("Reserve(5) up to the exact ceiling failed: %v", err)
	}
}

func TestBudgetSummary(t *testing.T) {
	b := NewBudget(10, 0.015)
	if err := b.Reserve(2); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if got := b.Summary(); got != "budget≈$0.03/$10.00" {
		t.Fatalf("Summary() = %q", got)
	}
}
