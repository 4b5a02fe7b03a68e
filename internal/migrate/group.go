// Package migrate is the orchestration engine: grouping references by
// parent article, the phase-1 transform pass with its worker pool and single
// ledger writer, and the phase-2 apply pass with revision conflict
// detection.
package migrate

import (
	"recipemigrate/internal/ledger"
	"recipemigrate/internal/recipe"
)

// ArticleGroup is the unit of article-level work: one parent article and the
// recipes it owns, in reference order.
type ArticleGroup struct {
	ArticleID string
	RecipeIDs []string
}

// GroupReferences partitions references by parent article, preserving the
// first-seen order of articles and the reference order within each article.
// Ids in the processed set are dropped; groups left empty are dropped too.
func GroupReferences(refs []recipe.Reference, processed map[string]struct{}) []ArticleGroup {
	index := make(map[string]int)
	var groups []ArticleGroup

	for _, ref := range refs {
		if _, done := processed[ref.RecipeID]; done {
			continue
		}
		i, ok := index[ref.ArticleID]
		if !ok {
			i = len(groups)
			index[ref.ArticleID] = i
			groups = append(groups, ArticleGroup{ArticleID: ref.ArticleID})
		}
		groups[i].RecipeIDs = append(groups[i].RecipeIDs, ref.RecipeID)
	}
	return groups
}

// GroupStage1 partitions stage-1 outcomes by parent article for the apply
// pass, preserving ledger order.
func GroupStage1(outcomes []ledger.Stage1Outcome) [][]ledger.Stage1Outcome {
	index := make(map[string]int)
	var groups [][]ledger.Stage1Outcome

	for _, o := range outcomes {
		i, ok := index[o.ArticleID]
		if !ok {
			i = len(groups)
			index[o.ArticleID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], o)
	}
	return groups
}
