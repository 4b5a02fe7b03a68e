// Package composer talks to the authoring system integration endpoints:
// fetching the editable article (with its revision and recipe list) and
// applying transformed recipe fields back to it.
package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/recipe"
)

// Client reads and writes authoring articles.
type Client struct {
	readBase   string
	writeBase  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for the integration read and write endpoints.
func New(readBase, writeBase string, opts ...Option) (*Client, error) {
	if readBase == "" || writeBase == "" {
		return nil, fmt.Errorf("composer: read and write base URLs are required")
	}
	c := &Client{
		readBase:   strings.TrimSuffix(readBase, "/"),
		writeBase:  strings.TrimSuffix(writeBase, "/"),
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Article is the authoring representation: the revision counter and every
// recipe embedded in the article.
type Article struct {
	ComposerID string          `json:"composerId"`
	Revision   int64           `json:"revision"`
	Recipes    []recipe.Recipe `json:"recipes"`
}

// FetchArticle fetches the authoring article by composer id. Any non-200
// response is returned as an *httpapi.APIError carrying the status and body.
func (c *Client) FetchArticle(ctx context.Context, composerID string) (*Article, error) {
	u := c.readBase + "/" + composerID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch composer article: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var article Article
	if err := httpapi.DoJSON(c.httpClient, c.logger, req, "fetch composer article", &article); err != nil {
		return nil, err
	}
	if article.ComposerID == "" {
		article.ComposerID = composerID
	}
	return &article, nil
}

// FindRecipe locates a recipe by id within the article's recipe list.
func (a *Article) FindRecipe(recipeID string) (*recipe.Recipe, bool) {
	for i := range a.Recipes {
		if a.Recipes[i].ID == recipeID {
			return &a.Recipes[i], true
		}
	}
	return nil, false
}

// ApplyUpdate is the payload pushed back to the authoring system: only the
// fields the transformation produced.
type ApplyUpdate struct {
	ID           string                    `json:"id"`
	Ingredients  []recipe.IngredientsGroup `json:"ingredients"`
	Instructions []recipe.Instruction      `json:"instructions"`
}

// Apply posts the transformed fields for one recipe to the article-scoped
// write endpoint. Any non-200 response is an *httpapi.APIError with the
// status and body captured.
func (c *Client) Apply(ctx context.Context, composerID string, update ApplyUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("apply recipe %s: marshal: %w", update.ID, err)
	}

	u := c.writeBase + "/" + composerID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("apply recipe %s: create request: %w", update.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return httpapi.DoJSON(c.httpClient, c.logger, req, "apply recipe", nil)
}
