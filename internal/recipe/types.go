// Package recipe models the recipe document as stored in the authoring
// system, with every optional field encoded as an explicit pointer rather
// than key-presence tests on dynamic maps.
package recipe

import "encoding/json"

// Reference identifies one recipe and the article that owns it.
type Reference struct {
	RecipeID  string `json:"recipeId"`
	ArticleID string `json:"articleId"`
}

// Range is a min/max pair; either bound may be absent.
type Range struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// Image is a crop reference in the media system.
type Image struct {
	URL           string  `json:"url"`
	MediaID       string  `json:"mediaId,omitempty"`
	CropID        *string `json:"cropId,omitempty"`
	Source        *string `json:"source,omitempty"`
	Photographer  *string `json:"photographer,omitempty"`
	ImageType     *string `json:"imageType,omitempty"`
	Caption       *string `json:"caption,omitempty"`
	MediaAPIURI   *string `json:"mediaApiUri,omitempty"`
	DisplayCredit *bool   `json:"displayCredit,omitempty"`
	Width         int     `json:"width,omitempty"`
	Height        int     `json:"height,omitempty"`
}

// Contributor is either a tagged contributor or free text.
type Contributor struct {
	Type  string  `json:"type,omitempty"`
	TagID *string `json:"tagId,omitempty"`
	Text  *string `json:"text,omitempty"`
}

// Ingredient is a single ingredient line.
type Ingredient struct {
	Name         string  `json:"name"`
	IngredientID *string `json:"ingredientId,omitempty"`
	Amount       *Range  `json:"amount,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	Prefix       *string `json:"prefix,omitempty"`
	Suffix       *string `json:"suffix,omitempty"`
	Text         *string `json:"text,omitempty"`
	Optional     bool    `json:"optional,omitempty"`
}

// IngredientsGroup is a titled section of ingredient lines.
type IngredientsGroup struct {
	RecipeSection   *string      `json:"recipeSection,omitempty"`
	IngredientsList []Ingredient `json:"ingredientsList,omitempty"`
}

// Serves describes how many people the recipe feeds.
type Serves struct {
	Amount *Range  `json:"amount,omitempty"`
	Unit   *string `json:"unit,omitempty"`
	Text   *string `json:"text,omitempty"`
}

// Timing is a named duration (prep, cook, ...).
type Timing struct {
	Qualifier      string  `json:"qualifier,omitempty"`
	DurationInMins *Range  `json:"durationInMins,omitempty"`
	Text           *string `json:"text,omitempty"`
}

// Instruction is one numbered step.
type Instruction struct {
	Description string  `json:"description"`
	Images      []Image `json:"images,omitempty"`
	StepNumber  *int    `json:"stepNumber,omitempty"`
}

// Recipe is the full recipe document.
type Recipe struct {
	ID                      string             `json:"id"`
	ComposerID              *string            `json:"composerId,omitempty"`
	CanonicalArticle        *string            `json:"canonicalArticle,omitempty"`
	Title                   *string            `json:"title,omitempty"`
	Description             *string            `json:"description,omitempty"`
	IsAppReady              *bool              `json:"isAppReady,omitempty"`
	FeaturedImage           *Image             `json:"featuredImage,omitempty"`
	PreviewImage            *Image             `json:"previewImage,omitempty"`
	Contributors            []Contributor      `json:"contributors,omitempty"`
	Ingredients             []IngredientsGroup `json:"ingredients,omitempty"`
	SuitableForDietIDs      []string           `json:"suitableForDietIds,omitempty"`
	CuisineIDs              []string           `json:"cuisineIds,omitempty"`
	MealTypeIDs             []string           `json:"mealTypeIds,omitempty"`
	CelebrationIDs          []string           `json:"celebrationIds,omitempty"`
	UtensilsAndApplianceIDs []string           `json:"utensilsAndApplianceIds,omitempty"`
	TechniquesUsedIDs       []string           `json:"techniquesUsedIds,omitempty"`
	DifficultyLevel         *string            `json:"difficultyLevel,omitempty"`
	Serves                  []Serves           `json:"serves,omitempty"`
	Timings                 []Timing           `json:"timings,omitempty"`
	Instructions            []Instruction      `json:"instructions,omitempty"`
	BookCredit              *string            `json:"bookCredit,omitempty"`
	Byline                  []string           `json:"byline,omitempty"`
}

// Clone returns a deep copy of the recipe via a JSON round-trip.
func (r *Recipe) Clone() (*Recipe, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Recipe
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
