// Package capi fetches the canonical published representation of an article
// from the content API. The migration only needs it to resolve the authoring
// system's composer id for an article.
package capi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/logging"
)

// Client is a read-only content API client.
type Client struct {
	baseURL    string
	apiKey     string
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

// New creates a client for the given content API instance.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("capi: baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Article is the slice of the canonical document the migration reads.
type Article struct {
	ID     string        `json:"id"`
	Fields ArticleFields `json:"fields"`
}

// ArticleFields carries the nested field set requested with show-fields=all.
type ArticleFields struct {
	InternalComposerCode string `json:"internalComposerCode"`
	Headline             string `json:"headline"`
}

type contentResponse struct {
	Response struct {
		Content Article `json:"content"`
	} `json:"response"`
}

// FetchArticle fetches the canonical article by id. A missing article
// surfaces as an *httpapi.APIError matching httpapi.IsNotFound.
func (c *Client) FetchArticle(ctx context.Context, articleID string) (*Article, error) {
	u := fmt.Sprintf("%s/%s?api-key=%s&show-fields=all&show-blocks=all",
		c.baseURL, articleID, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch article: create request: %w", err)
	}

	var doc contentResponse
	if err := httpapi.DoJSON(c.httpClient, c.logger, req, "fetch article", &doc); err != nil {
		return nil, err
	}
	return &doc.Response.Content, nil
}

// ComposerID returns the authoring system id for the article, or "" when the
// article has never been opened in the authoring tool.
func (a *Article) ComposerID() string {
	return a.Fields.InternalComposerCode
}
