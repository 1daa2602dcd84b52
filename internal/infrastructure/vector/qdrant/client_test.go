package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonzo97/mchp-fpga-mcp/internal/core/domain"
)

type capturedUpsert struct {
	Points []struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	} `json:"points"`
}

func testChunk(ordinal int) domain.Chunk {
	return domain.Chunk{
		DocID:       "PolarFire UG0726",
		Version:     "V11",
		Ordinal:     ordinal,
		PageStart:   4,
		PageEnd:     5,
		Text:        "transceiver lane configuration",
		TokenCount:  4,
		ContentHash: "deadbeef",
	}
}

func TestUpsertCreatesCollectionOnceThenWritesPoints(t *testing.T) {
	var createCalls, upsertCalls int
	var captured capturedUpsert

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks" && r.URL.RawQuery == "":
			createCalls++
			var body struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode create body: %v", err)
			}
			if body.Vectors.Size != 2 || body.Vectors.Distance != "Cosine" {
				t.Errorf("create body = %+v", body)
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/manual_chunks/points":
			upsertCalls++
			if r.URL.Query().Get("wait") != "true" {
				t.Errorf("upsert must wait for commit")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Errorf("decode upsert body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	chunks := []domain.Chunk{testChunk(0), testChunk(1)}
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.UpsertChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("UpsertChunks() error = %v", err)
	}
	if err := client.UpsertChunks(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("second UpsertChunks() error = %v", err)
	}

	if createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1 (collection ensured lazily, once)", createCalls)
	}
	if upsertCalls != 2 {
		t.Fatalf("upsertCalls = %d, want 2", upsertCalls)
	}
	if len(captured.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(captured.Points))
	}

	payload := captured.Points[0].Payload
	if payload["doc_id"] != "PolarFire UG0726" || payload["text"] != "transceiver lane configuration" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload["content_hash"] != "deadbeef" {
		t.Fatalf("payload missing content hash: %+v", payload)
	}
}

func TestPointIDsAreDeterministicPerChunkIdentity(t *testing.T) {
	a := PointID(testChunk(0))
	b := PointID(testChunk(0))
	if a != b {
		t.Fatalf("same chunk produced different ids: %s vs %s", a, b)
	}

	other := testChunk(1)
	if PointID(other) == a {
		t.Fatalf("different ordinals must produce different ids")
	}

	moved := testChunk(0)
	moved.PageStart = 9
	if PointID(moved) == a {
		t.Fatalf("different page start must produce a different id")
	}
}

func TestUpsertRejectsMismatchedVectors(t *testing.T) {
	client := New("http://127.0.0.1:1", "manual_chunks")
	err := client.UpsertChunks(context.Background(), []domain.Chunk{testChunk(0)}, [][]float32{{1}, {2}})
	if err == nil {
		t.Fatalf("mismatched chunk/vector counts must be rejected")
	}
}

func TestExistingCollectionConflictIsTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/manual_chunks" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "manual_chunks")
	err := client.UpsertChunks(context.Background(), []domain.Chunk{testChunk(0)}, [][]float32{{1}})
	if err != nil {
		t.Fatalf("409 on ensure must not fail the upsert, got %v", err)
	}
}
