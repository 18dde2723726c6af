package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    LotStatus
		to      LotStatus
		allowed bool
	}{
		{"available to reserved", StatusAvailable, StatusReserved, true},
		{"reserved back to available", StatusReserved, StatusAvailable, true},
		{"available to split", StatusAvailable, StatusSplit, true},
		{"available to depleted", StatusAvailable, StatusDepleted, true},
		{"reserved to depleted", StatusReserved, StatusDepleted, true},
		{"available to scrapped", StatusAvailable, StatusScrapped, true},
		{"reserved to scrapped", StatusReserved, StatusScrapped, true},
		{"depleted to scrapped", StatusDepleted, StatusScrapped, true},

		{"reserved to split", StatusReserved, StatusSplit, false},
		{"split to available", StatusSplit, StatusAvailable, false},
		{"split to scrapped", StatusSplit, StatusScrapped, false},
		{"depleted to available", StatusDepleted, StatusAvailable, false},
		{"scrapped to available", StatusScrapped, StatusAvailable, false},
		{"scrapped to depleted", StatusScrapped, StatusDepleted, false},
		{"available to available", StatusAvailable, StatusAvailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestLotStatusTerminal(t *testing.T) {
	assert.False(t, StatusAvailable.Terminal())
	assert.False(t, StatusReserved.Terminal())
	assert.True(t, StatusSplit.Terminal())
	assert.True(t, StatusDepleted.Terminal())
	assert.True(t, StatusScrapped.Terminal())
}

func TestLotStatusCountsTowardStock(t *testing.T) {
	assert.True(t, StatusAvailable.CountsTowardStock())
	assert.True(t, StatusReserved.CountsTowardStock())
	assert.False(t, StatusSplit.CountsTowardStock())
	assert.False(t, StatusDepleted.CountsTowardStock())
	assert.False(t, StatusScrapped.CountsTowardStock())
}

func TestClassifyStock(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		minAlert string
		want     StockClassification
	}{
		{"zero stock is out of stock", "0", "10", StockOutOfStock},
		{"negative stock is out of stock", "-5", "0", StockOutOfStock},
		{"below threshold is low", "8", "10", StockLow},
		{"at threshold is normal", "10", "10", StockNormal},
		{"above threshold is normal", "50", "10", StockNormal},
		{"no threshold configured is normal", "3", "0", StockNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := decimal.RequireFromString(tt.current)
			minAlert := decimal.RequireFromString(tt.minAlert)
			assert.Equal(t, tt.want, ClassifyStock(current, minAlert))
		})
	}
}
