package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/stocklot/stocklot-backend/pkg/errors"
)

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPlanFIFO_SpansMultipleLots(t *testing.T) {
	candidates := []AllocationCandidate{
		{LotID: "l1", Quantity: qty("80"), ReceivedAt: day(1)},
		{LotID: "l2", Quantity: qty("50"), ReceivedAt: day(2)},
	}

	plan, err := PlanFIFO(candidates, qty("120"))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, "l1", plan[0].LotID)
	assert.True(t, plan[0].Delta.Equal(qty("80")))
	assert.Equal(t, "l2", plan[1].LotID)
	assert.True(t, plan[1].Delta.Equal(qty("40")))
}

func TestPlanFIFO_OrdersByReceivedAtNotInput(t *testing.T) {
	// Newest first on input; the plan must still consume oldest first.
	candidates := []AllocationCandidate{
		{LotID: "newer", Quantity: qty("100"), ReceivedAt: day(5)},
		{LotID: "older", Quantity: qty("100"), ReceivedAt: day(1)},
	}

	plan, err := PlanFIFO(candidates, qty("30"))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "older", plan[0].LotID)
	assert.True(t, plan[0].Delta.Equal(qty("30")))
}

func TestPlanFIFO_NeverLeavesEarlierLotPartial(t *testing.T) {
	candidates := []AllocationCandidate{
		{LotID: "l1", Quantity: qty("10"), ReceivedAt: day(1)},
		{LotID: "l2", Quantity: qty("10"), ReceivedAt: day(2)},
		{LotID: "l3", Quantity: qty("10"), ReceivedAt: day(3)},
	}

	plan, err := PlanFIFO(candidates, qty("25"))
	require.NoError(t, err)
	require.Len(t, plan, 3)

	// Every lot except the last must be consumed in full.
	assert.True(t, plan[0].Delta.Equal(qty("10")))
	assert.True(t, plan[1].Delta.Equal(qty("10")))
	assert.True(t, plan[2].Delta.Equal(qty("5")))
}

func TestPlanFIFO_InsufficientStock(t *testing.T) {
	candidates := []AllocationCandidate{
		{LotID: "l1", Quantity: qty("80"), ReceivedAt: day(1)},
		{LotID: "l2", Quantity: qty("50"), ReceivedAt: day(2)},
	}

	plan, err := PlanFIFO(candidates, qty("200"))
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "200", appErr.Details["need"])
	assert.Equal(t, "130", appErr.Details["have"])
}

func TestPlanFIFO_NoCandidates(t *testing.T) {
	plan, err := PlanFIFO(nil, qty("1"))
	assert.Nil(t, plan)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
}

func TestPlanFIFO_NonPositiveRequired(t *testing.T) {
	_, err := PlanFIFO(nil, qty("0"))
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestPlanFIFO_ExactCoverage(t *testing.T) {
	candidates := []AllocationCandidate{
		{LotID: "l1", Quantity: qty("60"), ReceivedAt: day(1)},
		{LotID: "l2", Quantity: qty("40"), ReceivedAt: day(2)},
	}

	plan, err := PlanFIFO(candidates, qty("100"))
	require.NoError(t, err)
	require.Len(t, plan, 2)

	total := decimal.Zero
	for _, a := range plan {
		total = total.Add(a.Delta)
	}
	assert.True(t, total.Equal(qty("100")))
}

func TestPlanFIFO_FractionalQuantities(t *testing.T) {
	candidates := []AllocationCandidate{
		{LotID: "l1", Quantity: qty("1.5"), ReceivedAt: day(1)},
		{LotID: "l2", Quantity: qty("2.25"), ReceivedAt: day(2)},
	}

	plan, err := PlanFIFO(candidates, qty("2.75"))
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.True(t, plan[0].Delta.Equal(qty("1.5")))
	assert.True(t, plan[1].Delta.Equal(qty("1.25")))
}

func TestValidateSplit(t *testing.T) {
	alloc := func(qs ...string) []SplitAllocation {
		out := make([]SplitAllocation, 0, len(qs))
		for _, q := range qs {
			out = append(out, SplitAllocation{Quantity: qty(q)})
		}
		return out
	}

	t.Run("valid partial split", func(t *testing.T) {
		total, err := ValidateSplit(StatusAvailable, qty("100"), alloc("40", "30"))
		require.NoError(t, err)
		assert.True(t, total.Equal(qty("70")))
	})

	t.Run("full quantity relabel split", func(t *testing.T) {
		total, err := ValidateSplit(StatusAvailable, qty("100"), alloc("100"))
		require.NoError(t, err)
		assert.True(t, total.Equal(qty("100")))
	})

	t.Run("over allocation", func(t *testing.T) {
		_, err := ValidateSplit(StatusAvailable, qty("100"), alloc("60", "50"))
		assert.True(t, apperrors.Is(err, apperrors.ErrOverAllocation))
	})

	t.Run("non available source", func(t *testing.T) {
		_, err := ValidateSplit(StatusReserved, qty("100"), alloc("10"))
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
	})

	t.Run("empty allocations", func(t *testing.T) {
		_, err := ValidateSplit(StatusAvailable, qty("100"), nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	t.Run("zero quantity allocation", func(t *testing.T) {
		_, err := ValidateSplit(StatusAvailable, qty("100"), alloc("40", "0"))
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})
}
