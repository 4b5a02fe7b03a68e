// Package index fetches the published recipe index, the source of the full
// set of (recipe id, article id) pairs to migrate.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/logging"
	"recipemigrate/internal/recipe"
)

// Client fetches the recipe index document.
type Client struct {
	url        string
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

// New creates a client for the given index URL.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("index: url is required")
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type indexEntry struct {
	RecipeUID     string `json:"recipeUID"`
	CapiArticleID string `json:"capiArticleId"`
}

type indexDocument struct {
	Recipes []indexEntry `json:"recipes"`
}

// FetchReferences returns the ordered list of recipe references in the index.
func (c *Client) FetchReferences(ctx context.Context) ([]recipe.Reference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch index: create request: %w", err)
	}

	var doc indexDocument
	if err := httpapi.DoJSON(c.httpClient, c.logger, req, "fetch index", &doc); err != nil {
		return nil, err
	}

	refs := make([]recipe.Reference, 0, len(doc.Recipes))
	for _, entry := range doc.Recipes {
		refs = append(refs, recipe.Reference{
			RecipeID:  entry.RecipeUID,
			ArticleID: entry.CapiArticleID,
		})
	}
	return refs, nil
}
