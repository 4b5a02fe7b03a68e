package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"recipemigrate/internal/capi"
	"recipemigrate/internal/composer"
	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/ledger"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/recipe"
	"recipemigrate/internal/templatiser"
)

func strPtr(s string) *string { return &s }

type fakeCAPI struct {
	articles map[string]*capi.Article
	calls    atomic.Int32
}

func (f *fakeCAPI) FetchArticle(_ context.Context, articleID string) (*capi.Article, error) {
	f.calls.Add(1)
	a, ok := f.articles[articleID]
	if !ok {
		return nil, httpapi.NewAPIError("fetch article", 404, "not found")
	}
	return a, nil
}

type fakeComposer struct {
	articles map[string]*composer.Article
	err      error
	calls    atomic.Int32
}

func (f *fakeComposer) FetchArticle(_ context.Context, composerID string) (*composer.Article, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.articles[composerID]
	if !ok {
		return nil, httpapi.NewAPIError("fetch composer article", 404, "not found")
	}
	return a, nil
}

type fakeTransformer struct {
	submit func(r *recipe.Recipe) (*templatiser.Result, error)
	calls  atomic.Int32
}

func (f *fakeTransformer) Submit(_ context.Context, r *recipe.Recipe) (*templatiser.Result, error) {
	f.calls.Add(1)
	return f.submit(r)
}

func passthrough(r *recipe.Recipe) (*templatiser.Result, error) {
	return &templatiser.Result{Recipe: *r, Cost: 0.01}, nil
}

func capiArticle(composerID string) *capi.Article {
	return &capi.Article{
		ID:     "article-a",
		Fields: capi.ArticleFields{InternalComposerCode: composerID},
	}
}

func composerArticle(revision int64, recipes ...recipe.Recipe) *composer.Article {
	return &composer.Article{ComposerID: "composer-1", Revision: revision, Recipes: recipes}
}

func testRecipe(id string) recipe.Recipe {
	return recipe.Recipe{
		ID:    id,
		Title: strPtr("Recipe " + id),
		Ingredients: []recipe.IngredientsGroup{
			{IngredientsList: []recipe.Ingredient{{Name: "onion"}}},
		},
		Instructions: []recipe.Instruction{{Description: "Chop."}},
	}
}

func newProcessor(t *testing.T, c *fakeCAPI, co *fakeComposer, tr *fakeTransformer) *Processor {
	t.Helper()
	return &Processor{
		CAPI:        c,
		Composer:    co,
		Templatiser: tr,
		OutputDir:   t.TempDir(),
		Log:         logging.Discard(),
	}
}

func TestProcessGroup(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{articles: map[string]*composer.Article{
		"composer-1": composerArticle(42, testRecipe("r1"), testRecipe("r2")),
	}}
	transformer := &fakeTransformer{submit: passthrough}

	p := newProcessor(t, capiFake, composerFake, transformer)
	group := ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1", "r2"}}

	outcomes := p.ProcessGroup(context.Background(), group)
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	for i, id := range []string{"r1", "r2"} {
		o := outcomes[i]
		if o.RecipeID != id {
			t.Errorf("outcome %d recipe id = %q, want %q", i, o.RecipeID, id)
		}
		if o.Status != ledger.StatusSuccess {
			t.Errorf("outcome %s status = %s, want SUCCESS", id, o.Status)
		}
		if o.ComposerID == nil || *o.ComposerID != "composer-1" {
			t.Errorf("outcome %s composer id = %v", id, o.ComposerID)
		}
		if o.SourceRevision != 42 {
			t.Errorf("outcome %s revision = %d, want 42", id, o.SourceRevision)
		}
		if o.Cost != 0.01 {
			t.Errorf("outcome %s cost = %v", id, o.Cost)
		}

		data, err := os.ReadFile(o.ArtifactPath)
		if err != nil {
			t.Fatalf("artifact for %s not written: %v", id, err)
		}
		var artifact recipe.Recipe
		if err := json.Unmarshal(data, &artifact); err != nil {
			t.Fatalf("artifact for %s not valid JSON: %v", id, err)
		}
		if artifact.ID != id || artifact.Title == nil {
			t.Errorf("artifact for %s lost fields: %+v", id, artifact)
		}
	}
}

func TestProcessGroup_ArticleNotFound(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{}}
	transformer := &fakeTransformer{submit: passthrough}
	p := newProcessor(t, capiFake, &fakeComposer{}, transformer)

	group := ArticleGroup{ArticleID: "article-gone", RecipeIDs: []string{"r1", "r2", "r3"}}
	outcomes := p.ProcessGroup(context.Background(), group)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != ledger.StatusError {
			t.Errorf("outcome %s status = %s, want ERROR", o.RecipeID, o.Status)
		}
		if o.Reason == nil || *o.Reason != "article not found" {
			t.Errorf("outcome %s reason = %v", o.RecipeID, o.Reason)
		}
	}
	if transformer.calls.Load() != 0 {
		t.Errorf("transformer must not be called, got %d calls", transformer.calls.Load())
	}

	entries, err := os.ReadDir(p.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("no artifact may be written for a failed group, found %d files", len(entries))
	}
}

func TestProcessGroup_ComposerFetchError(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{err: httpapi.NewAPIError("fetch composer article", 502, "composer is down")}
	p := newProcessor(t, capiFake, composerFake, &fakeTransformer{submit: passthrough})

	group := ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1", "r2"}}
	outcomes := p.ProcessGroup(context.Background(), group)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != ledger.StatusError {
			t.Errorf("status = %s, want ERROR", o.Status)
		}
		if o.Reason == nil || *o.Reason == "" {
			t.Error("reason must carry the reported message")
		}
		if o.ComposerID == nil || *o.ComposerID != "composer-1" {
			t.Errorf("composer id should be recorded, got %v", o.ComposerID)
		}
	}
}

func TestProcessGroup_MissingRecipeDoesNotAbortSiblings(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{articles: map[string]*composer.Article{
		"composer-1": composerArticle(7, testRecipe("r2")), // r1 absent
	}}
	p := newProcessor(t, capiFake, composerFake, &fakeTransformer{submit: passthrough})

	group := ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1", "r2"}}
	outcomes := p.ProcessGroup(context.Background(), group)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != ledger.StatusError {
		t.Errorf("r1 should error, got %s", outcomes[0].Status)
	}
	if outcomes[0].SourceRevision != 7 {
		t.Errorf("r1 error row revision = %d, want 7", outcomes[0].SourceRevision)
	}
	if outcomes[1].Status != ledger.StatusSuccess {
		t.Errorf("r2 should succeed, got %s", outcomes[1].Status)
	}
}

func TestProcessGroup_TransformErrorIsLocal(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{articles: map[string]*composer.Article{
		"composer-1": composerArticle(7, testRecipe("r1"), testRecipe("r2")),
	}}
	transformer := &fakeTransformer{submit: func(r *recipe.Recipe) (*templatiser.Result, error) {
		if r.ID == "r1" {
			return nil, fmt.Errorf("templatise: HTTP 422: bad recipe")
		}
		return passthrough(r)
	}}
	p := newProcessor(t, capiFake, composerFake, transformer)

	group := ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1", "r2"}}
	outcomes := p.ProcessGroup(context.Background(), group)

	if outcomes[0].Status != ledger.StatusError {
		t.Errorf("r1 should error, got %s", outcomes[0].Status)
	}
	if outcomes[1].Status != ledger.StatusSuccess {
		t.Errorf("r2 should succeed, got %s", outcomes[1].Status)
	}
}

func TestProcessGroup_PanicBecomesErrors(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{articles: map[string]*composer.Article{
		"composer-1": composerArticle(7, testRecipe("r1"), testRecipe("r2")),
	}}
	transformer := &fakeTransformer{submit: func(r *recipe.Recipe) (*templatiser.Result, error) {
		panic("boom")
	}}
	p := newProcessor(t, capiFake, composerFake, transformer)

	group := ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1", "r2"}}
	outcomes := p.ProcessGroup(context.Background(), group)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != ledger.StatusError {
			t.Errorf("outcome %s status = %s, want ERROR", o.RecipeID, o.Status)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		result *templatiser.Result
		want   ledger.Stage1Status
	}{
		{
			name:   "clean pass",
			result: &templatiser.Result{},
			want:   ledger.StatusSuccess,
		},
		{
			name:   "auto repair applied",
			result: &templatiser.Result{Expected: json.RawMessage(`{"a":1}`)},
			want:   ledger.StatusAcceptedByLLM,
		},
		{
			name:   "review reason wins",
			result: &templatiser.Result{ReviewReason: strPtr("ambiguous unit"), Expected: json.RawMessage(`{"a":1}`)},
			want:   ledger.StatusReviewNeeded,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.result); got != tc.want {
				t.Errorf("classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestProcessGroup_DiffRecorded(t *testing.T) {
	capiFake := &fakeCAPI{articles: map[string]*capi.Article{"article-a": capiArticle("composer-1")}}
	composerFake := &fakeComposer{articles: map[string]*composer.Article{
		"composer-1": composerArticle(7, testRecipe("r1")),
	}}
	transformer := &fakeTransformer{submit: func(r *recipe.Recipe) (*templatiser.Result, error) {
		return &templatiser.Result{
			Recipe:   *r,
			Cost:     0.02,
			Expected: json.RawMessage(`{"amount":1}`),
			Received: json.RawMessage(`{"amount":2}`),
		}, nil
	}}
	p := newProcessor(t, capiFake, composerFake, transformer)

	outcomes := p.ProcessGroup(context.Background(),
		ArticleGroup{ArticleID: "article-a", RecipeIDs: []string{"r1"}})

	o := outcomes[0]
	if o.Status != ledger.StatusAcceptedByLLM {
		t.Errorf("status = %s, want ACCEPTED_BY_LLM", o.Status)
	}
	if o.Diff == nil || *o.Diff == "" {
		t.Error("expected a recorded diff")
	}
	if o.ExpectedPayload == nil || o.ReceivedPayload == nil {
		t.Error("expected both payloads recorded")
	}
}
