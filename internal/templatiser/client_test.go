package templatiser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"recipemigrate/internal/httpapi"
	"recipemigrate/internal/recipe"
)

func titled(title string) *recipe.Recipe {
	return &recipe.Recipe{ID: "r1", Title: &title}
}

const okResponse = `{
	"recipe": {"id": "r1", "ingredients": [{"ingredientsList": [{"name": "onion"}]}]},
	"cost": 0.021,
	"reviewReason": null
}`

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		if err != nil || cookie.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, err := New(server.URL, "tok", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}

	result, err := client.Submit(context.Background(), titled("Soup"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Cost != 0.021 {
		t.Errorf("cost = %v, want 0.021", result.Cost)
	}
	if result.ReviewReason != nil {
		t.Errorf("expected nil reviewReason, got %v", *result.ReviewReason)
	}
	if len(result.Recipe.Ingredients) != 1 {
		t.Errorf("unexpected result recipe: %+v", result.Recipe)
	}
}

func TestSubmit_RetriesOn503(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(okResponse))
	}))
	defer server.Close()

	client, _ := New(server.URL, "tok",
		WithHTTPClient(server.Client()),
		WithBackoff(time.Millisecond))

	result, err := client.Submit(context.Background(), titled("Soup"))
	if err != nil {
		t.Fatalf("Submit after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls (2 unavailable + 1 ok), got %d", calls.Load())
	}
	// Same outcome as an immediate 200
	if result.Cost != 0.021 {
		t.Errorf("cost = %v, want 0.021", result.Cost)
	}
}

func TestSubmit_422NotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"instructions must not be empty"}`))
	}))
	defer server.Close()

	client, _ := New(server.URL, "tok", WithHTTPClient(server.Client()))
	_, err := client.Submit(context.Background(), titled("Broken"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !httpapi.IsValidationRejected(err) {
		t.Errorf("expected IsValidationRejected, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("422 must not be retried, got %d calls", calls.Load())
	}
}

func TestSubmit_OtherStatusFatal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := New(server.URL, "tok", WithHTTPClient(server.Client()))
	_, err := client.Submit(context.Background(), titled("Soup"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !httpapi.HasStatusCode(err, http.StatusInternalServerError) {
		t.Errorf("expected HTTP 500 API error, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("500 must not be retried, got %d calls", calls.Load())
	}
}

func TestSubmit_ContextCancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := New(server.URL, "tok",
		WithHTTPClient(server.Client()),
		WithBackoff(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Submit(ctx, titled("Soup"))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestSubmit_NullPayloadsNormalised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"recipe":{"id":"r1"},"cost":0.01,"reviewReason":null,"expected":null,"received":null}`))
	}))
	defer server.Close()

	client, _ := New(server.URL, "tok", WithHTTPClient(server.Client()))
	result, err := client.Submit(context.Background(), titled("Soup"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(result.Expected) != 0 || len(result.Received) != 0 {
		t.Errorf("explicit nulls should normalise to absent, got %q / %q",
			result.Expected, result.Received)
	}
}
