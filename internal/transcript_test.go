package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranscriptServiceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/youtube/transcript" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("text") != "true" {
			t.Errorf("expected text=true query parameter")
		}
		w.Write([]byte(`{"content":"hello transcript","lang":"en"}`))
	}))
	defer server.Close()

	svc := NewTranscriptService(server.URL, "test-key")
	got, err := svc.Fetch(context.Background(), "https://www.youtube.com/watch?v=abc12345678")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got != "hello transcript" {
		t.Errorf("Fetch = %q, want %q", got, "hello transcript")
	}
}

func TestTranscriptServiceFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"limit exceeded"}`))
	}))
	defer server.Close()

	svc := NewTranscriptService(server.URL, "test-key")
	_, err := svc.Fetch(context.Background(), "https://youtu.be/abc12345678")
	if err == nil {
		t.Fatal("expected error for 429 status, got nil")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status code in error, got: %v", err)
	}
}

func TestTranscriptServiceFetchEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":"  ","lang":"en"}`))
	}))
	defer server.Close()

	svc := NewTranscriptService(server.URL, "test-key")
	_, err := svc.Fetch(context.Background(), "https://youtu.be/abc12345678")
	if err == nil {
		t.Fatal("expected error for empty transcript, got nil")
	}
}

func TestTranscriptServiceFetchRequiresKey(t *testing.T) {
	svc := NewTranscriptService("http://localhost:1", "")
	_, err := svc.Fetch(context.Background(), "https://youtu.be/abc12345678")
	if err == nil {
		t.Fatal("expected error without API key, got nil")
	}
}
