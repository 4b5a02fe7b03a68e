package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"recipemigrate/internal/capi"
	"recipemigrate/internal/composer"
	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/ledger"
	"recipemigrate/internal/recipe"
	"recipemigrate/internal/templatiser"
)

// ArticleFetcher fetches the canonical article representation.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, articleID string) (*capi.Article, error)
}

// ComposerFetcher fetches the authoring article representation.
type ComposerFetcher interface {
	FetchArticle(ctx context.Context, composerID string) (*composer.Article, error)
}

// Transformer submits a shaped recipe to the transformation service.
type Transformer interface {
	Submit(ctx context.Context, r *recipe.Recipe) (*templatiser.Result, error)
}

// Processor runs the per-group transform pipeline: fetch, shape, submit,
// reassemble, persist, classify.
type Processor struct {
	CAPI        ArticleFetcher
	Composer    ComposerFetcher
	Templatiser Transformer
	OutputDir   string
	Log         *slog.Logger
}

// ProcessGroup processes every recipe of one article group and returns one
// stage-1 outcome per recipe id. It never returns an error: every failure
// mode, including a panic, becomes an ERROR outcome so one group cannot
// take down the batch or silently drop its siblings.
func (p *Processor) ProcessGroup(ctx context.Context, g ArticleGroup) (outcomes []ledger.Stage1Outcome) {
	var composerID *string

	defer func() {
		if r := recover(); r != nil {
			p.Log.Error("group processing panicked",
				"article_id", g.ArticleID, "panic", r)
			reason := fmt.Sprintf("unexpected failure: %v", r)
			for _, id := range g.RecipeIDs[len(outcomes):] {
				outcomes = append(outcomes, ledger.ErrorOutcome(id, g.ArticleID, composerID, reason))
			}
		}
	}()

	article, err := p.CAPI.FetchArticle(ctx, g.ArticleID)
	if err != nil {
		reason := "article not found"
		if !httpapi.IsNotFound(err) {
			reason = err.Error()
		}
		p.Log.Warn("canonical fetch failed", "article_id", g.ArticleID, "reason", reason)
		return p.groupError(g, nil, reason)
	}

	cid := article.ComposerID()
	if cid == "" {
		return p.groupError(g, nil, "article has no composer id")
	}
	composerID = &cid

	authored, err := p.Composer.FetchArticle(ctx, cid)
	if err != nil {
		p.Log.Warn("authoring fetch failed",
			"article_id", g.ArticleID, "composer_id", cid, "error", err)
		return p.groupError(g, composerID, err.Error())
	}

	for _, recipeID := range g.RecipeIDs {
		outcomes = append(outcomes, p.processRecipe(ctx, recipeID, g.ArticleID, authored))
	}
	return outcomes
}

// groupError emits an ERROR outcome per recipe id in the group; a failure at
// the article level admits no partial success.
func (p *Processor) groupError(g ArticleGroup, composerID *string, reason string) []ledger.Stage1Outcome {
	outcomes := make([]ledger.Stage1Outcome, 0, len(g.RecipeIDs))
	for _, id := range g.RecipeIDs {
		outcomes = append(outcomes, ledger.ErrorOutcome(id, g.ArticleID, composerID, reason))
	}
	return outcomes
}

func (p *Processor) processRecipe(ctx context.Context, recipeID, articleID string, authored *composer.Article) ledger.Stage1Outcome {
	composerID := &authored.ComposerID

	// The revision is known by now, so even ERROR rows carry it.
	fail := func(reason string) ledger.Stage1Outcome {
		o := ledger.ErrorOutcome(recipeID, articleID, composerID, reason)
		o.SourceRevision = authored.Revision
		return o
	}

	raw, ok := authored.FindRecipe(recipeID)
	if !ok {
		return fail("recipe not found in composer article")
	}

	shaped, err := recipe.ShapeForValidation(raw)
	if err != nil {
		return fail(err.Error())
	}

	result, err := p.Templatiser.Submit(ctx, shaped)
	if err != nil {
		return fail(err.Error())
	}

	reassembled, err := recipe.Reassemble(raw, &result.Recipe)
	if err != nil {
		return fail(err.Error())
	}

	artifactPath := filepath.Join(p.OutputDir, recipeID+".json")
	if err := writeArtifact(artifactPath, reassembled); err != nil {
		return fail(err.Error())
	}

	outcome := ledger.Stage1Outcome{
		RecipeID:       recipeID,
		ArticleID:      articleID,
		ComposerID:     composerID,
		ArtifactPath:   artifactPath,
		Status:         classify(result),
		Cost:           result.Cost,
		SourceRevision: authored.Revision,
	}
	if result.ReviewReason != nil {
		outcome.Reason = result.ReviewReason
	}
	if len(result.Expected) > 0 {
		s := string(result.Expected)
		outcome.ExpectedPayload = &s
	}
	if len(result.Received) > 0 {
		s := string(result.Received)
		outcome.ReceivedPayload = &s
	}
	if diff := UnifiedDiff(result.Expected, result.Received); diff != "" {
		outcome.Diff = &diff
	}

	p.Log.Info("recipe processed",
		"recipe_id", recipeID, "status", outcome.Status, "cost", result.Cost)
	return outcome
}

// classify maps a transform result to its outcome status: a review reason
// always wins, an "expected" payload means the service auto-repaired the
// recipe, anything else passed cleanly.
func classify(result *templatiser.Result) ledger.Stage1Status {
	switch {
	case result.ReviewReason != nil:
		return ledger.StatusReviewNeeded
	case len(result.Expected) > 0:
		return ledger.StatusAcceptedByLLM
	default:
		return ledger.StatusSuccess
	}
}

func writeArtifact(path string, r *recipe.Recipe) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", r.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
