// Package ledger is the durable record of per-recipe migration outcomes.
//
// Each phase appends to its own CSV file, one row per outcome, header row
// written once on first append. The ledger is the single source of truth for
// "has this recipe already been processed": a recipe present in a phase's
// file is skipped when that phase reruns.
package ledger

// Stage1Status classifies a transform-and-validate attempt.
type Stage1Status string

const (
	StatusSuccess       Stage1Status = "SUCCESS"
	StatusAcceptedByLLM Stage1Status = "ACCEPTED_BY_LLM"
	StatusReviewNeeded  Stage1Status = "REVIEW_NEEDED"
	StatusError         Stage1Status = "ERROR"
)

// ApplyStatus classifies a stage-2 apply attempt.
type ApplyStatus string

const (
	ApplySuccess       ApplyStatus = "SUCCESS"
	ApplyError         ApplyStatus = "ERROR"
	ApplySourceUpdated ApplyStatus = "SOURCE_UPDATED"
)

// Stage1Outcome records one transform-and-validate attempt. Records are
// append-only: never mutated, never deleted.
type Stage1Outcome struct {
	RecipeID        string
	ArticleID       string
	ComposerID      *string
	ArtifactPath    string
	Status          Stage1Status
	Reason          *string
	Diff            *string
	ExpectedPayload *string
	ReceivedPayload *string
	Cost            float64
	SourceRevision  int64
}

// Stage2Outcome extends a Stage1Outcome with the apply result. It is only
// ever constructed from an existing stage-1 record via FromStage1.
type Stage2Outcome struct {
	Stage1        Stage1Outcome
	ApplyStatus   ApplyStatus
	FailureReason *string
}

// FromStage1 builds the stage-2 record for a stage-1 outcome.
func FromStage1(o Stage1Outcome, status ApplyStatus, reason *string) Stage2Outcome {
	return Stage2Outcome{Stage1: o, ApplyStatus: status, FailureReason: reason}
}

// ErrorOutcome builds a stage-1 ERROR record for a recipe that could not be
// processed.
func ErrorOutcome(recipeID, articleID string, composerID *string, reason string) Stage1Outcome {
	return Stage1Outcome{
		RecipeID:   recipeID,
		ArticleID:  articleID,
		ComposerID: composerID,
		Status:     StatusError,
		Reason:     &reason,
	}
}

// Stage1IDs returns the set of recipe ids present in the records. Later
// records win, though in practice each id appears once.
func Stage1IDs(records []Stage1Outcome) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.RecipeID] = struct{}{}
	}
	return ids
}

// Stage2IDs returns the set of recipe ids present in the stage-2 records.
func Stage2IDs(records []Stage2Outcome) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.Stage1.RecipeID] = struct{}{}
	}
	return ids
}

// LatestStage1 collapses the records to the authoritative entry per recipe
// id, keeping input order of first appearance.
func LatestStage1(records []Stage1Outcome) []Stage1Outcome {
	index := make(map[string]int, len(records))
	var out []Stage1Outcome
	for _, r := range records {
		if i, ok := index[r.RecipeID]; ok {
			out[i] = r
			continue
		}
		index[r.RecipeID] = len(out)
		out = append(out, r)
	}
	return out
}
