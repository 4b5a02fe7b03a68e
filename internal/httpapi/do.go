// Package httpapi carries the request plumbing shared by every external
// service client: JSON round-trips and structured errors for non-2xx
// responses.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DoJSON executes the request and decodes the JSON response into dst.
// dst may be nil when the response body is irrelevant. A non-2xx status
// yields an *APIError carrying the status code and response body.
func DoJSON(client *http.Client, logger *slog.Logger, req *http.Request, operation string, dst any) error {
	logger.InfoContext(req.Context(), "API request",
		"operation", operation, "method", req.Method, "url", req.URL.String())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	logger.DebugContext(req.Context(), "API response",
		"operation", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := string(body)
		if msg == "" {
			msg = resp.Status
		}
		return NewAPIError(operation, resp.StatusCode, msg)
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}
