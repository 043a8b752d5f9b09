package llm

import "fmt"

// Budget tracks estimated spend for one run. Exact provider cost is not
// observable synchronously, so a fixed conservative per-call estimate is
// booked before each call is issued; the counter therefore never
// understates exposure even when a call fails.
//
// Budget is an explicit per-run object: hand it to every call site, never a
// package-level singleton, so tests and parallel runs stay isolated.
type Budget struct {
	ceiling    float64
	estPerCall float64
	spent      float64
}

func NewBudget(ceilingUSD, estPerCallUSD float64) *Budget {
	return &Budget{ceiling: ceilingUSD, estPerCall: estPerCallUSD}
}

// Reserve books calls upcoming LLM calls. If the projection would cross the
// ceiling it fails without mutating state, so spend can exceed the ceiling
// by at most one call's estimate.
func (b *Budget) Reserve(calls int) error {
	projected := b.spent + b.estPerCall*float64(calls)
	if projected > b.ceiling {
		return fmt.Errorf("%w: spent≈$%.2f, need $%.2f, cap $%.2f",
			ErrBudgetExceeded, b.spent, b.estPerCall*float64(calls), b.ceiling)
	}
	b.spent = projected
	return nil
}

func (b *Budget) Spent() float64 {
	return b.spent
}

func (b *Budget) Ceiling() float64 {
	return b.ceiling
}

// Summary renders the spend line printed at the end of every run.
func (b *Budget) Summary() string {
	return fmt.Sprintf("budget≈$%.2f/$%.2f", b.spent, b.ceiling)
}
