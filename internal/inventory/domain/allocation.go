package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// AllocationCandidate is a snapshot of one available lot considered for a
// cross-lot decrement.
type AllocationCandidate struct {
	LotID      string
	Quantity   decimal.Decimal
	ReceivedAt time.Time
}

// Allocation is one planned per-lot decrement.
type Allocation struct {
	LotID string
	Delta decimal.Decimal
}

// PlanFIFO greedily allocates the required quantity across candidate lots in
// ascending received_at order: the oldest lot is consumed fully before the
// next one is touched. It returns the per-lot decrements, or an
// insufficient-stock error when the candidates cannot cover the requirement.
//
// This is a pure planning step over a snapshot. The transactional applier
// must re-validate each lot after acquiring its row lock, since the snapshot
// may be stale by the time locks are taken.
func PlanFIFO(candidates []AllocationCandidate, required decimal.Decimal) ([]Allocation, error) {
	if required.LessThanOrEqual(decimal.Zero) {
		return nil, errors.BadRequest("required quantity must be positive")
	}

	sorted := make([]AllocationCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
	})

	total := decimal.Zero
	for _, c := range sorted {
		total = total.Add(c.Quantity)
	}
	if total.LessThan(required) {
		return nil, errors.InsufficientStock(required.String(), total.String())
	}

	var plan []Allocation
	remaining := required
	for _, c := range sorted {
		if remaining.IsZero() {
			break
		}
		if c.Quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(c.Quantity, remaining)
		plan = append(plan, Allocation{LotID: c.LotID, Delta: take})
		remaining = remaining.Sub(take)
	}

	return plan, nil
}

// SplitAllocation is one requested child lot in a split.
type SplitAllocation struct {
	Quantity  decimal.Decimal
	Location  string
	SpecValue string
}

// ValidateSplit checks the split preconditions against the source lot's
// state and returns the allocation total. The caller holds the source row
// lock when this runs.
func ValidateSplit(sourceStatus LotStatus, sourceQuantity decimal.Decimal, allocations []SplitAllocation) (decimal.Decimal, error) {
	if sourceStatus != StatusAvailable {
		return decimal.Zero, errors.InvalidStateTransition(string(sourceStatus), string(StatusSplit))
	}
	if len(allocations) == 0 {
		return decimal.Zero, errors.BadRequest("at least one allocation is required")
	}

	total := decimal.Zero
	for _, a := range allocations {
		if a.Quantity.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, errors.BadRequest("allocation quantities must be positive")
		}
		total = total.Add(a.Quantity)
	}

	if total.GreaterThan(sourceQuantity) {
		return decimal.Zero, errors.OverAllocation(total.String(), sourceQuantity.String())
	}

	return total, nil
}
