package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      "{\"a\":1}",
		"```json\n{\"a\":1}\n```":        "{\"a\":1}",
		"```\n{\"a\":1}\n```":            "{\"a\":1}",
		"  {\"a\":1}  ":                  "{\"a\":1}",
		"```json\n{\"a\": \"b```c\"}```": "{\"a\": \"b```c\"}",
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompleteRoundTrip(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  ¡Vamos con todo! 💪  "}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(nil, server.URL, "test-key", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	got, err := client.Complete(context.Background(), Request{
		Model:            "gpt-4-turbo-preview",
		Messages:         []Message{{Role: "user", Content: "hola"}},
		MaxTokens:        500,
		Temperature:      0.7,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "¡Vamos con todo! 💪" {
		t.Fatalf("Complete = %q", got)
	}
	if captured.Model != "gpt-4-turbo-preview" || captured.MaxTokens != 500 {
		t.Fatalf("request not forwarded: %+v", captured)
	}
	if captured.PresencePenalty != 0.6 || captured.FrequencyPenalty != 0.3 {
		t.Fatalf("penalties not forwarded: %+v", captured)
	}
}

func TestCompleteOmitsZeroPenalties(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(nil, server.URL, "test-key", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hola"}},
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := raw["presence_penalty"]; ok {
		t.Fatal("zero presence_penalty must be omitted")
	}
	if _, ok := raw["frequency_penalty"]; ok {
		t.Fatal("zero frequency_penalty must be omitted")
	}
}

func TestCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(nil, server.URL, "test-key", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hola"}},
	}); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client, err := NewClient(nil, server.URL, "test-key", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hola"}},
	}); err == nil {
		t.Fatal("expected error when choices are empty")
	}
}
