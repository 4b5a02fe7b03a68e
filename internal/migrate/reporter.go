package migrate

import (
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// Reporter is the explicitly constructed reporting context handed to the
// orchestrators. It owns its counters and mutates them behind its own lock;
// nothing else in the pipeline keeps progress state.
type Reporter struct {
	log *slog.Logger

	mu        sync.Mutex
	completed int
	total     int
	cost      float64

	pw      progress.Writer
	tracker *progress.Tracker
}

// NewReporter creates a reporter. When interactive is true a terminal
// progress bar is rendered; otherwise progress is visible through logs only.
func NewReporter(log *slog.Logger, interactive bool) *Reporter {
	r := &Reporter{log: log}
	if interactive {
		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetUpdateFrequency(250 * time.Millisecond)
		r.pw = pw
	}
	return r
}

// Start begins tracking a run of total recipes, alreadyDone of which were
// completed by earlier runs.
func (r *Reporter) Start(total, alreadyDone int) {
	r.mu.Lock()
	r.total = total
	r.completed = alreadyDone
	r.mu.Unlock()

	if r.pw != nil {
		r.tracker = &progress.Tracker{
			Message: "Processing recipes",
			Total:   int64(total),
		}
		r.pw.AppendTracker(r.tracker)
		r.tracker.SetValue(int64(alreadyDone))
		go r.pw.Render()
	}

	r.log.Info("run started", "total", total, "already_processed", alreadyDone)
}

// Complete records one finished recipe and its reported cost. Non-finite
// cost values are logged and excluded from the aggregate without aborting.
func (r *Reporter) Complete(cost float64) {
	r.mu.Lock()
	r.completed++
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		r.log.Warn("invalid cost value, skipping in aggregate", "cost", cost)
	} else {
		r.cost += cost
	}
	completed, total, running := r.completed, r.total, r.cost
	r.mu.Unlock()

	if r.tracker != nil {
		r.tracker.Increment(1)
	}
	r.log.Debug("progress", "completed", completed, "total", total, "total_cost", running)
}

// Stop finishes rendering and logs the final summary.
func (r *Reporter) Stop() {
	if r.pw != nil {
		r.pw.Stop()
	}

	completed, total, cost := r.Snapshot()
	r.log.Info("run finished", "completed", completed, "total", total, "total_cost", cost)
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() (completed, total int, cost float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed, r.total, r.cost
}
