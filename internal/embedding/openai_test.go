package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// embeddingsServer answers /embeddings with a vector of length dim and
// records the last request body.
func embeddingsServer(t *testing.T, dim int, last *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
			return
		}
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		*last = body

		vec := make([]float32, dim)
		vec[0] = 1
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  body["model"],
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var last map[string]any
	srv := embeddingsServer(t, 8, &last)

	e, err := NewOpenAIEmbedder("test-key", srv.URL+"/v1", "", 8)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if e.Name() != "openai:"+DefaultOpenAIModel {
		t.Errorf("Name() = %q", e.Name())
	}

	vec, err := e.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 8 || vec[0] != 1 {
		t.Errorf("Embed() = %v", vec)
	}
	if last["model"] != DefaultOpenAIModel {
		t.Errorf("request model = %v, want %s", last["model"], DefaultOpenAIModel)
	}
	if dims, _ := last["dimensions"].(float64); dims != 8 {
		t.Errorf("request dimensions = %v, want 8", last["dimensions"])
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	var last map[string]any
	srv := embeddingsServer(t, 4, &last)

	e, err := NewOpenAIEmbedder("test-key", srv.URL+"/v1", "m", 8)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("Embed() expected dimension mismatch error")
	}
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	var last map[string]any
	srv := embeddingsServer(t, 8, &last)

	e, err := NewOpenAIEmbedder("wrong-key", srv.URL+"/v1", "m", 8)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("Embed() expected error for rejected key")
	}
}
