//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

func postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(testServer.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	cleanDB(testPool)

	// Create a stage whose name drives status inference.
	resp := postJSON(t, "/api/v1/stages", map[string]any{"name": "In Progress", "order": 0})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create stage: expected 201, got %d", resp.StatusCode)
	}
	var st map[string]any
	decodeBody(t, resp, &st)
	stageID := st["id"].(string)

	// Create a task; status should be inferred from the stage name.
	resp = postJSON(t, "/api/v1/tasks", map[string]any{"title": "integration task", "stage_id": stageID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d", resp.StatusCode)
	}
	var created map[string]any
	decodeBody(t, resp, &created)
	taskID := created["id"].(string)
	if created["status"] != "in_progress" {
		t.Fatalf("expected inferred in_progress, got %v", created["status"])
	}
	if created["version"].(float64) != 1 {
		t.Fatalf("expected version 1, got %v", created["version"])
	}

	// Patch the title.
	req, err := http.NewRequest(http.MethodPatch, testServer.URL+"/api/v1/tasks/"+taskID,
		bytes.NewReader([]byte(`{"title":"renamed"}`)))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	var updated map[string]any
	decodeBody(t, resp, &updated)
	if updated["title"] != "renamed" || updated["version"].(float64) != 2 {
		t.Fatalf("unexpected task after patch: %v", updated)
	}

	// Archive appends a history entry.
	resp = postJSON(t, "/api/v1/tasks/"+taskID+"/archive", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d", resp.StatusCode)
	}
	var archived map[string]any
	decodeBody(t, resp, &archived)
	history := archived["history"].([]any)
	last := history[len(history)-1].(map[string]any)
	if last["note"] != "Archived" {
		t.Fatalf("expected archive note, got %v", last)
	}

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, testServer.URL+"/api/v1/tasks/"+taskID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestConcurrentArchivesAgainstPostgres(t *testing.T) {
	cleanDB(testPool)

	resp := postJSON(t, "/api/v1/stages", map[string]any{"name": "Backlog", "order": 0})
	var st map[string]any
	decodeBody(t, resp, &st)

	resp = postJSON(t, "/api/v1/tasks", map[string]any{"title": "contended", "stage_id": st["id"]})
	var created map[string]any
	decodeBody(t, resp, &created)
	taskID := created["id"].(string)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := postJSON(t, "/api/v1/tasks/"+taskID+"/archive", nil)
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("archive status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent archive: %v", err)
	}

	resp, err := http.Get(testServer.URL + "/api/v1/tasks/" + taskID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var final map[string]any
	decodeBody(t, resp, &final)
	if final["version"].(float64) != float64(1+workers) {
		t.Fatalf("expected version %d, got %v", 1+workers, final["version"])
	}
	if len(final["history"].([]any)) != 1+workers {
		t.Fatalf("expected %d history entries, got %d", 1+workers, len(final["history"].([]any)))
	}
}
