package collector

import (
	"context"
	"time"

	"SharpeSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
// Implementations return bars in chronological order.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
