package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"recipemigrate/internal/ledger"
	"recipemigrate/internal/recipe"
)

// ReferenceLister supplies the full set of recipe references to migrate.
type ReferenceLister interface {
	FetchReferences(ctx context.Context) ([]recipe.Reference, error)
}

// GroupProcessor turns one article group into stage-1 outcomes.
type GroupProcessor interface {
	ProcessGroup(ctx context.Context, g ArticleGroup) []ledger.Stage1Outcome
}

// Stage1 runs the transform-and-validate pass: it dispatches one concurrent
// task per pending article group and funnels every outcome through a single
// ledger-writing goroutine.
type Stage1 struct {
	Index       ReferenceLister
	Processor   GroupProcessor
	LedgerPath  string
	ArtifactDir string
	Parallelism int
	Reporter    *Reporter
	Log         *slog.Logger
}

// Run executes the pass. Only a reference-fetch failure or a ledger failure
// is fatal; per-group failures land in the ledger as ERROR outcomes.
func (s *Stage1) Run(ctx context.Context) error {
	existing, err := ledger.LoadStage1(s.LedgerPath)
	if err != nil {
		return fmt.Errorf("load stage-1 ledger: %w", err)
	}
	processed := ledger.Stage1IDs(existing)

	refs, err := s.Index.FetchReferences(ctx)
	if err != nil {
		return fmt.Errorf("fetch references: %w", err)
	}
	s.Log.Info("fetched recipe references", "total", len(refs))

	groups := GroupReferences(refs, processed)
	pending := 0
	for _, g := range groups {
		pending += len(g.RecipeIDs)
	}
	s.Log.Info("pending after filtering processed recipes",
		"pending", pending, "groups", len(groups))

	if err := os.MkdirAll(s.ArtifactDir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	writer, err := ledger.NewStage1Writer(s.LedgerPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	s.Reporter.Start(len(refs), len(refs)-pending)
	defer s.Reporter.Stop()

	results := make(chan ledger.Stage1Outcome)

	// The sole ledger writer. It keeps draining after a write failure so
	// producers never block; the first error is reported when it exits.
	writerDone := make(chan error, 1)
	go func() {
		var firstErr error
		for outcome := range results {
			if firstErr != nil {
				continue
			}
			s.Log.Info("writing outcome",
				"recipe_id", outcome.RecipeID, "status", outcome.Status)
			if err := writer.AppendStage1(outcome); err != nil {
				firstErr = err
			}
		}
		writerDone <- firstErr
	}()

	parallelism := s.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	pool := new(errgroup.Group)
	pool.SetLimit(parallelism)
	for _, g := range groups {
		g := g
		pool.Go(func() error {
			for _, outcome := range s.safeProcess(ctx, g) {
				results <- outcome
				s.Reporter.Complete(outcome.Cost)
			}
			return nil
		})
	}

	_ = pool.Wait()
	close(results)
	if err := <-writerDone; err != nil {
		return fmt.Errorf("ledger writer: %w", err)
	}

	completed, total, cost := s.Reporter.Snapshot()
	s.Log.Info("stage 1 complete",
		"completed", completed, "total", total, "total_cost", cost,
		"ledger", s.LedgerPath)
	return nil
}

// safeProcess is the dispatch-boundary guard: a panic that somehow escapes
// the processor's own recovery still becomes per-id ERROR outcomes instead
// of crashing the pool.
func (s *Stage1) safeProcess(ctx context.Context, g ArticleGroup) (outcomes []ledger.Stage1Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("group task panicked", "article_id", g.ArticleID, "panic", r)
			outcomes = nil
			reason := fmt.Sprintf("unexpected failure: %v", r)
			for _, id := range g.RecipeIDs {
				outcomes = append(outcomes, ledger.ErrorOutcome(id, g.ArticleID, nil, reason))
			}
		}
	}()
	return s.Processor.ProcessGroup(ctx, g)
}
