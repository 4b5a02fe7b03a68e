package httpapi

import (
	"fmt"
	"testing"
)

func TestPredicates(t *testing.T) {
	notFound := NewAPIError("fetch article", 404, "not found")
	if !IsNotFound(notFound) {
		t.Error("expected IsNotFound")
	}
	if IsUnavailable(notFound) {
		t.Error("404 should not be IsUnavailable")
	}

	rejected := NewAPIError("templatise", 422, `{"message":"bad"}`)
	if !IsValidationRejected(rejected) {
		t.Error("expected IsValidationRejected")
	}

	unavailable := NewAPIError("templatise", 503, "")
	if !IsUnavailable(unavailable) {
		t.Error("expected IsUnavailable")
	}
}

func TestPredicates_Wrapped(t *testing.T) {
	err := fmt.Errorf("submit recipe: %w", NewAPIError("templatise", 503, ""))
	if !IsUnavailable(err) {
		t.Error("predicate should see through wrapping")
	}
}

func TestAPIError_Message(t *testing.T) {
	err := NewAPIError("apply recipe", 500, "boom")
	want := "apply recipe: HTTP 500: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.StatusCode() != 500 || err.Body() != "boom" || err.Operation() != "apply recipe" {
		t.Errorf("accessor mismatch: %+v", err)
	}
}
