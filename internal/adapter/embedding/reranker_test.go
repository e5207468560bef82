package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPRerankerScoresInInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Query != "parse json" {
			t.Errorf("query = %q", req.Query)
		}

		// Respond out of order; scores must land by index.
		resp := rerankResponse{Results: []rerankResult{
			{Index: 1, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.2},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r, err := NewHTTPReranker(srv.URL, "HERMES_TEST_RERANK_KEY", "test-model", 512)
	if err != nil {
		t.Fatal(err)
	}

	scores, err := r.Score("parse json", []string{"doc a", "doc b"})
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0.2 || scores[1] != 0.9 {
		t.Errorf("scores = %v, want [0.2 0.9]", scores)
	}
}

func TestHTTPRerankerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r, err := NewHTTPReranker(srv.URL, "HERMES_TEST_RERANK_KEY", "test-model", 512)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Score("q", []string{"doc"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHTTPRerankerEmptyPassages(t *testing.T) {
	r, err := NewHTTPReranker("http://localhost:0", "HERMES_TEST_RERANK_KEY", "test-model", 512)
	if err != nil {
		t.Fatal(err)
	}
	scores, err := r.Score("q", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("got %d scores for no passages", len(scores))
	}
}

func TestHTTPRerankerRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPReranker("", "KEY", "m", 512); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
