package recipe

import (
	"fmt"

	"github.com/google/uuid"
)

// ShapeForValidation prepares a recipe for submission to the templatiser.
//
// The input is never mutated. The shaped copy:
//   - clears the image, serves, and timing fields the templatiser does not
//     manage, so the apply phase cannot clobber them with stale values
//   - drops ingredient groups with an empty ingredient list
//   - nulls any amount whose minimum is absent
//   - renders the canonical text line for every ingredient
//   - assigns an ingredient id where one is missing
//   - renumbers instruction steps starting at 1
func ShapeForValidation(r *Recipe) (*Recipe, error) {
	shaped, err := r.Clone()
	if err != nil {
		return nil, fmt.Errorf("shape recipe %s: %w", r.ID, err)
	}

	shaped.FeaturedImage = nil
	shaped.PreviewImage = nil
	shaped.Serves = nil
	shaped.Timings = nil

	groups := shaped.Ingredients[:0]
	for _, group := range shaped.Ingredients {
		if len(group.IngredientsList) == 0 {
			continue
		}
		for i := range group.IngredientsList {
			ing := &group.IngredientsList[i]
			if ing.Amount != nil && ing.Amount.Min == nil {
				ing.Amount = nil
			}
			text := IngredientText(*ing)
			ing.Text = &text
			if ing.IngredientID == nil || *ing.IngredientID == "" {
				id := uuid.NewString()
				ing.IngredientID = &id
			}
		}
		groups = append(groups, group)
	}
	shaped.Ingredients = groups

	for i := range shaped.Instructions {
		step := i + 1
		shaped.Instructions[i].StepNumber = &step
	}

	return shaped, nil
}

// Reassemble copies the original recipe, replacing only its ingredients and
// instructions with the transformed values. Every other field stays as
// authored.
func Reassemble(original *Recipe, transformed *Recipe) (*Recipe, error) {
	out, err := original.Clone()
	if err != nil {
		return nil, fmt.Errorf("reassemble recipe %s: %w", original.ID, err)
	}
	out.Ingredients = transformed.Ingredients
	out.Instructions = transformed.Instructions
	return out, nil
}
