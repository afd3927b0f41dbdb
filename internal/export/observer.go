package export

import (
	"context"
	"log/slog"
	"time"

	"demoreport/pkg/contracts/domain"
)

// Progress is a point-in-time view of a run, sent on every state change
// and after every sheet
type Progress struct {
	RunID    string               `json:"run_id"`
	Identity domain.MatchIdentity `json:"identity,omitempty"`
	Previous State                `json:"previous,omitempty"`
	State    State                `json:"state"`
	// Sheet is set for sheet progress
	Sheet      string    `json:"sheet,omitempty"`
	SheetIndex int       `json:"sheet_index"`
	SheetTotal int       `json:"sheet_total"`
	Percent    int       `json:"percent"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Observer receives run progress. Observe is called synchronously from
// the run and must not block.
type Observer interface {
	Observe(ctx context.Context, p Progress)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, p Progress)

// Observe calls f
func (f ObserverFunc) Observe(ctx context.Context, p Progress) { f(ctx, p) }

// MultiObserver fans progress out to several observers
type MultiObserver []Observer

// Observe forwards p to every observer
func (m MultiObserver) Observe(ctx context.Context, p Progress) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, p)
		}
	}
}

// LogObserver writes progress to a logger at debug level
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer logging to logger
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Observe logs p
func (o *LogObserver) Observe(ctx context.Context, p Progress) {
	attrs := []any{
		slog.String("run_id", p.RunID),
		slog.String("state", string(p.State)),
		slog.Int("percent", p.Percent),
	}
	if p.Sheet != "" {
		attrs = append(attrs,
			slog.String("sheet", p.Sheet),
			slog.Int("sheet_index", p.SheetIndex+1),
			slog.Int("sheet_total", p.SheetTotal))
	}
	o.logger.DebugContext(ctx, "export_progress", attrs...)
}

// percentFor maps a position in the run to 0-100. Generation takes the
// larger share since it is the visible part for cached matches.
func percentFor(state State, sheetsDone, sheetTotal int) int {
	switch state {
	case StateStart:
		return 0
	case StateIdentityResolved:
		return 5
	case StateAnalyzing, StateCacheLoading:
		return 10
	case StateModelReady:
		return 40
	case StateGenerating:
		if sheetTotal == 0 {
			return 40
		}
		return 40 + 60*sheetsDone/sheetTotal
	case StateDone:
		return 100
	default:
		return 0
	}
}
