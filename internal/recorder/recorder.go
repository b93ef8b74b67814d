package recorder

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"SharpeSentinel/internal/model"
)

// ErrNoRuns is returned by LatestRun when nothing has been recorded yet.
var ErrNoRuns = errors.New("no optimisation runs recorded")

// Trigger names what started a run.
const (
	TriggerCLI      = "cli"
	TriggerCron     = "cron"
	TriggerTelegram = "telegram"
	TriggerHTTP     = "http"
)

// RunRecord is one persisted optimisation run.
type RunRecord struct {
	ID             string           `json:"id"`
	Trigger        string           `json:"trigger"`
	Symbols        []string         `json:"symbols"`
	Start          string           `json:"start"`
	End            string           `json:"end"`
	Units          int              `json:"units"`
	TradingDays    int              `json:"trading_days"`
	Allocation     model.Allocation `json:"allocation"`
	Sharpe         float64          `json:"sharpe_ratio"`
	Volatility     float64          `json:"volatility"`
	MeanDaily      float64          `json:"mean_daily_return"`
	Cumulative     float64          `json:"cumulative_return"`
	MaxDrawdown    float64          `json:"max_drawdown"`
	CompoundReturn float64          `json:"compound_return"`
	Evaluated      int              `json:"evaluated"`
	Skipped        int              `json:"skipped"`
	ElapsedMS      int64            `json:"elapsed_ms"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewRunRecord flattens a report into a record with a fresh ID.
func NewRunRecord(r *model.Report, trigger string) *RunRecord {
	rec := &RunRecord{
		ID:             uuid.NewString(),
		Trigger:        trigger,
		Symbols:        append([]string(nil), r.Symbols...),
		Start:          r.Start.Format("2006-01-02"),
		End:            r.End.Format("2006-01-02"),
		Units:          r.Units,
		TradingDays:    r.TradingDays,
		MaxDrawdown:    r.MaxDrawdown,
		CompoundReturn: r.CompoundReturn,
		ElapsedMS:      r.Elapsed.Milliseconds(),
		CreatedAt:      r.FinishedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if b := r.Best; b != nil {
		rec.Allocation = b.Allocation.Clone()
		rec.Sharpe = b.SharpeRatio
		rec.Volatility = b.Volatility
		rec.MeanDaily = b.MeanDailyReturn
		rec.Cumulative = b.CumulativeReturn
		rec.Evaluated = b.Evaluated
		rec.Skipped = b.Skipped
	}
	return rec
}

// Recorder persists optimisation runs for later inspection.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	LatestRun() (*RunRecord, error)
	Close() error
}
