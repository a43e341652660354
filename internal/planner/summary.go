package planner

import (
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	Count     int
	Total     decimal.Decimal
	FirstDate time.Time
	LastDate  time.Time
	// Settles is true when the last item is the settling installment.
	Settles bool
	// Truncated is true when the plan stopped at MaxPlanItems with
	// balance still left.
	Truncated bool
}

// Summarize aggregates a projected plan. An empty plan gives a zero Summary.
func Summarize(plan []PlanItem) Summary {
	if len(plan) == 0 {
		return Summary{Total: decimal.Zero}
	}
	total := decimal.Zero
	for _, it := range plan {
		total = total.Add(it.Amount)
	}
	last := plan[len(plan)-1]
	return Summary{
		Count:     len(plan),
		Total:     total,
		FirstDate: plan[0].Date,
		LastDate:  last.Date,
		Settles:   last.IsFinal,
		Truncated: !last.IsFinal && len(plan) >= MaxPlanItems,
	}
}
