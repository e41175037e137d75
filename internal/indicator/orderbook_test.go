package indicator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/obi-backtest/internal/market"
)

func TestComputeDepthMetrics(t *testing.T) {
	tests := []struct {
		name    string
		book    market.OrderBook
		want    DepthMetrics
		wantErr bool
	}{
		{
			name: "buy side dominance",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 100, Size: 5}, {Price: 99, Size: 3}},
				Asks: []market.BookLevel{{Price: 101, Size: 2}, {Price: 102, Size: 1}},
			},
			want: DepthMetrics{BidVolume: 8, AskVolume: 3, Imbalance: 5},
		},
		{
			name: "sell side dominance",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 100, Size: 1}},
				Asks: []market.BookLevel{{Price: 101, Size: 4}, {Price: 102, Size: 2.5}},
			},
			want: DepthMetrics{BidVolume: 1, AskVolume: 6.5, Imbalance: -5.5},
		},
		{
			name: "balanced book",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 100, Size: 3}},
				Asks: []market.BookLevel{{Price: 101, Size: 3}},
			},
			want: DepthMetrics{BidVolume: 3, AskVolume: 3, Imbalance: 0},
		},
		{
			name: "empty bid side",
			book: market.OrderBook{
				Asks: []market.BookLevel{{Price: 101, Size: 2}},
			},
			wantErr: true,
		},
		{
			name: "empty ask side",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 100, Size: 5}},
			},
			wantErr: true,
		},
		{
			name:    "both sides empty",
			book:    market.OrderBook{},
			wantErr: true,
		},
		{
			name: "malformed bid level",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 0, Size: 5}},
				Asks: []market.BookLevel{{Price: 101, Size: 2}},
			},
			wantErr: true,
		},
		{
			name: "negative ask size",
			book: market.OrderBook{
				Bids: []market.BookLevel{{Price: 100, Size: 5}},
				Asks: []market.BookLevel{{Price: 101, Size: -1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeDepthMetrics(tt.book)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, market.ErrInvalidOrderBook),
					"error should wrap market.ErrInvalidOrderBook, got %v", err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ComputeDepthMetrics() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// A malformed book must fail, not read as a balanced book with zero
// imbalance.
func TestComputeDepthMetricsNeverDefaultsToZero(t *testing.T) {
	_, err := ComputeDepthMetrics(market.OrderBook{})
	require.Error(t, err)
}

func TestMidPrice(t *testing.T) {
	book := market.OrderBook{
		Bids: []market.BookLevel{{Price: 100, Size: 5}, {Price: 99, Size: 3}},
		Asks: []market.BookLevel{{Price: 101, Size: 2}, {Price: 102, Size: 1}},
	}

	mid, err := MidPrice(book)
	require.NoError(t, err)
	assert.InDelta(t, 100.5, mid, 1e-9)

	_, err = MidPrice(market.OrderBook{Asks: book.Asks})
	assert.ErrorIs(t, err, market.ErrInvalidOrderBook)

	_, err = MidPrice(market.OrderBook{Bids: book.Bids})
	assert.ErrorIs(t, err, market.ErrInvalidOrderBook)
}
