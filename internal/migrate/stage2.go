package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"recipemigrate/internal/composer"
	"recipemigrate/internal/ledger"
	"recipemigrate/internal/recipe"
)

// Applier pushes transformed recipe fields back to the authoring system.
type Applier interface {
	Apply(ctx context.Context, composerID string, update composer.ApplyUpdate) error
}

// Stage2 runs the apply pass: for each article group of stage-1 outcomes it
// re-checks the authoring revision for drift, then applies each member's
// persisted artifact. Groups are processed sequentially; every outcome is
// appended to the stage-2 ledger the moment it is known.
type Stage2 struct {
	Composer   ComposerFetcher
	Apply      Applier
	Stage1Path string
	Stage2Path string
	Log        *slog.Logger
}

// Run executes the pass. Only ledger failures are fatal.
func (s *Stage2) Run(ctx context.Context) error {
	stage1, err := ledger.LoadStage1(s.Stage1Path)
	if err != nil {
		return fmt.Errorf("load stage-1 ledger: %w", err)
	}
	stage2, err := ledger.LoadStage2(s.Stage2Path)
	if err != nil {
		return fmt.Errorf("load stage-2 ledger: %w", err)
	}
	done := ledger.Stage2IDs(stage2)

	var pending []ledger.Stage1Outcome
	for _, o := range ledger.LatestStage1(stage1) {
		if _, ok := done[o.RecipeID]; ok {
			continue
		}
		pending = append(pending, o)
	}
	s.Log.Info("stage 2 starting",
		"stage1_records", len(stage1), "already_applied", len(done), "pending", len(pending))

	writer, err := ledger.NewStage2Writer(s.Stage2Path)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, group := range GroupStage1(pending) {
		if err := s.applyGroup(ctx, group, writer); err != nil {
			return err
		}
	}

	s.Log.Info("stage 2 complete", "ledger", s.Stage2Path)
	return nil
}

func (s *Stage2) applyGroup(ctx context.Context, group []ledger.Stage1Outcome, writer *ledger.Writer) error {
	articleID := group[0].ArticleID

	if allErrored(group) {
		s.Log.Info("skipping group, every member errored in stage 1", "article_id", articleID)
		return s.recordAll(group, writer, ledger.ApplyError, "skipped due to stage 1 error")
	}

	composerID := firstComposerID(group)
	if composerID == "" {
		return s.recordAll(group, writer, ledger.ApplyError, "no composer id recorded in stage 1")
	}

	live, err := s.Composer.FetchArticle(ctx, composerID)
	if err != nil {
		s.Log.Warn("authoring re-fetch failed", "article_id", articleID, "error", err)
		return s.recordAll(group, writer, ledger.ApplyError, err.Error())
	}

	// The revision recorded at stage-1 time must still be current; any drift
	// means the source was edited since, and a stale transform must not
	// overwrite it. ERROR rows may predate the revision being known, so the
	// recorded value comes from the first non-ERROR member.
	recorded := recordedRevision(group)
	if live.Revision != recorded {
		s.Log.Warn("source updated since stage 1, skipping apply",
			"article_id", articleID, "recorded_revision", recorded, "live_revision", live.Revision)
		reason := fmt.Sprintf("revision changed from %d to %d", recorded, live.Revision)
		return s.recordAll(group, writer, ledger.ApplySourceUpdated, reason)
	}

	for _, member := range group {
		outcome := s.applyMember(ctx, member, composerID)
		s.Log.Info("apply outcome",
			"recipe_id", member.RecipeID, "apply_status", outcome.ApplyStatus)
		if err := writer.AppendStage2(outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage2) applyMember(ctx context.Context, member ledger.Stage1Outcome, composerID string) ledger.Stage2Outcome {
	if member.Status == ledger.StatusError {
		reason := "skipped due to stage 1 error"
		return ledger.FromStage1(member, ledger.ApplyError, &reason)
	}
	if member.ArtifactPath == "" {
		reason := "missing artifact path"
		return ledger.FromStage1(member, ledger.ApplyError, &reason)
	}

	artifact, err := loadArtifact(member.ArtifactPath)
	if err != nil {
		reason := err.Error()
		return ledger.FromStage1(member, ledger.ApplyError, &reason)
	}

	update := composer.ApplyUpdate{
		ID:           member.RecipeID,
		Ingredients:  artifact.Ingredients,
		Instructions: artifact.Instructions,
	}
	if err := s.Apply.Apply(ctx, composerID, update); err != nil {
		reason := err.Error()
		return ledger.FromStage1(member, ledger.ApplyError, &reason)
	}
	return ledger.FromStage1(member, ledger.ApplySuccess, nil)
}

func (s *Stage2) recordAll(group []ledger.Stage1Outcome, writer *ledger.Writer, status ledger.ApplyStatus, reason string) error {
	for _, member := range group {
		if err := writer.AppendStage2(ledger.FromStage1(member, status, &reason)); err != nil {
			return err
		}
	}
	return nil
}

func allErrored(group []ledger.Stage1Outcome) bool {
	for _, member := range group {
		if member.Status != ledger.StatusError {
			return false
		}
	}
	return true
}

// recordedRevision returns the source revision of the first non-ERROR
// member. The all-errored short-circuit guarantees one exists by the time
// the revision is checked.
func recordedRevision(group []ledger.Stage1Outcome) int64 {
	for _, member := range group {
		if member.Status != ledger.StatusError {
			return member.SourceRevision
		}
	}
	return 0
}

func firstComposerID(group []ledger.Stage1Outcome) string {
	for _, member := range group {
		if member.ComposerID != nil && *member.ComposerID != "" {
			return *member.ComposerID
		}
	}
	return ""
}

func loadArtifact(path string) (*recipe.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var r recipe.Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return &r, nil
}
