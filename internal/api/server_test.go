package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkruijt/linkmap/pkg/linkage"
	"github.com/mkruijt/linkmap/pkg/pipeline"
	"github.com/mkruijt/linkmap/pkg/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	est := linkage.EstimatorFunc(func(_ context.Context, _ *linkage.Dataset, req linkage.EstimateRequest) (linkage.EstimateResult, error) {
		ll := 0.0
		for i := 1; i < len(req.Order); i++ {
			ll -= math.Abs(float64(req.Order[i] - req.Order[i-1]))
		}
		rf := make([]float64, len(req.Order)-1)
		for i := range rf {
			rf[i] = 0.1
		}
		return linkage.EstimateResult{RF: rf, LogLik: ll, Converged: true}, nil
	})
	store, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { store.Close(context.Background()) })
	return New(pipeline.NewRunner(est, nil, nil, nil), store, pipeline.Options{}, nil)
}

const datasetBody = `{
	"individuals": 1,
	"markers": [
		{"name": "m1", "seg": "A", "genos": [1]},
		{"name": "m2", "seg": "A", "genos": [2]},
		{"name": "m3", "seg": "A", "genos": [3]},
		{"name": "m4", "seg": "A", "genos": [4]}
	]
}`

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestBuildAndFetch(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/maps", "application/json", strings.NewReader(datasetBody))
	if err != nil {
		t.Fatalf("POST /v1/maps: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var built buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&built); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if built.ID == "" {
		t.Fatal("response has no session ID")
	}
	if built.Summary.Markers != 4 {
		t.Errorf("Summary.Markers = %d, want 4", built.Summary.Markers)
	}
	if len(built.Map.Markers) != 4 || len(built.Map.RF) != 3 {
		t.Errorf("map has %d markers and %d intervals", len(built.Map.Markers), len(built.Map.RF))
	}

	got, err := http.Get(srv.URL + "/v1/maps/" + built.ID)
	if err != nil {
		t.Fatalf("GET by id: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", got.StatusCode)
	}
	var fetched buildResponse
	if err := json.NewDecoder(got.Body).Decode(&fetched); err != nil {
		t.Fatalf("decoding fetched session: %v", err)
	}
	if fetched.ID != built.ID {
		t.Errorf("fetched ID = %q, want %q", fetched.ID, built.ID)
	}

	list, err := http.Get(srv.URL + "/v1/maps")
	if err != nil {
		t.Fatalf("GET list: %v", err)
	}
	defer list.Body.Close()
	var ids map[string][]string
	if err := json.NewDecoder(list.Body).Decode(&ids); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(ids["ids"]) != 1 || ids["ids"][0] != built.ID {
		t.Errorf("ids = %v, want [%s]", ids["ids"], built.ID)
	}
}

func TestDeleteSession(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/maps", "application/json", strings.NewReader(datasetBody))
	if err != nil {
		t.Fatalf("POST /v1/maps: %v", err)
	}
	var built buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&built); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/maps/"+built.ID, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", del.StatusCode)
	}

	got, err := http.Get(srv.URL + "/v1/maps/" + built.ID)
	if err != nil {
		t.Fatalf("GET after delete: %v", err)
	}
	got.Body.Close()
	if got.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", got.StatusCode)
	}
}

func TestGetMissingSession(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/maps/no-such-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["code"] != "SESSION_NOT_FOUND" {
		t.Errorf("code = %q, want SESSION_NOT_FOUND", body["code"])
	}
}

func TestBuildRejectsBadDataset(t *testing.T) {
	srv := httptest.NewServer(testServer(t).Router())
	defer srv.Close()

	for name, body := range map[string]string{
		"malformed json": `{`,
		"unknown seg":    `{"individuals":1,"markers":[{"name":"m1","seg":"X","genos":[1]}]}`,
		"no markers":     `{"individuals":1,"markers":[]}`,
	} {
		resp, err := http.Post(srv.URL+"/v1/maps", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("%s: POST: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
}
