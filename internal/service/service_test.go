package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tablecast/internal/filterfield"
	"tablecast/internal/storage"
	_ "tablecast/internal/storage/memory"
)

const sampleCSV = "name,score,active,homepage\n" +
	"Ada,10,true,https://example.com/ada\n" +
	"Grace,50,false,https://example.com/grace\n" +
	"Adele,15,true,https://example.com/adele\n"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	repo, err := storage.New(context.Background(), storage.Config{Kind: "memory"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(repo.Close)

	s := New(Config{Repo: repo})
	ids := 0
	s.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type datasetJSON struct {
	ID        string                       `json:"id"`
	Name      string                       `json:"name"`
	Schema    map[string]map[string]any    `json:"schema"`
	Fields    []filterfield.Field          `json:"fields"`
	Rows      []map[string]any             `json:"rows"`
	RowCount  int                          `json:"row_count"`
	TotalRows int                          `json:"total_rows"`
}

func createSample(t *testing.T, srv *httptest.Server) datasetJSON {
	t.Helper()
	resp, err := http.Post(srv.URL+"/datasets?name=people", "text/csv", strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("POST /datasets: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /datasets status = %d", resp.StatusCode)
	}
	return decodeBody[datasetJSON](t, resp)
}

func TestCreateDataset(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	got := createSample(t, srv)
	if got.ID != "id-1" || got.Name != "people" {
		t.Fatalf("id=%q name=%q", got.ID, got.Name)
	}
	if got.RowCount != 3 || got.TotalRows != 3 {
		t.Fatalf("row_count=%d total_rows=%d", got.RowCount, got.TotalRows)
	}

	wantTypes := map[string]string{
		"name":     "string",
		"score":    "number",
		"active":   "boolean",
		"homepage": "url",
	}
	for col, want := range wantTypes {
		entry, ok := got.Schema[col]
		if !ok {
			t.Fatalf("schema missing column %q: %v", col, got.Schema)
		}
		if entry["type"] != want {
			t.Errorf("column %q type = %v, want %s", col, entry["type"], want)
		}
	}
	// Positions follow input column order.
	if got.Schema["name"]["position"] != float64(0) || got.Schema["homepage"]["position"] != float64(3) {
		t.Errorf("positions = %v", got.Schema)
	}

	if len(got.Fields) != 4 {
		t.Fatalf("fields = %v", got.Fields)
	}
	for _, f := range got.Fields {
		if f.Value == "active" && f.Widget != filterfield.WidgetCheckbox {
			t.Errorf("active widget = %q", f.Widget)
		}
		if f.Value == "score" && f.Widget != filterfield.WidgetSlider {
			t.Errorf("score widget = %q", f.Widget)
		}
	}
}

func TestCreateRejectsUnparseableData(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "header_only_csv", body: "name,score\n"},
		{name: "html_without_table", body: "<p>hello</p>"},
		{name: "malformed_json", body: "{broken"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Post(srv.URL+"/datasets", "text/plain", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", resp.StatusCode)
			}
			body := decodeBody[map[string]string](t, resp)
			if body["error"] != "Failed to parse data" {
				t.Fatalf("error = %q", body["error"])
			}
		})
	}
}

func TestCreateFromSourceURL(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer origin.Close()

	resp, err := http.Post(srv.URL+"/datasets?source="+origin.URL, "", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	got := decodeBody[datasetJSON](t, resp)
	if got.RowCount != 3 {
		t.Fatalf("row_count = %d", got.RowCount)
	}
}

func TestListDatasets(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	resp, err := http.Get(srv.URL + "/datasets")
	if err != nil {
		t.Fatalf("GET /datasets: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	infos := decodeBody[[]storage.Info](t, resp)
	if len(infos) != 1 || infos[0].ID != "id-1" || infos[0].Rows != 3 || infos[0].Columns != 4 {
		t.Fatalf("infos = %+v", infos)
	}
}

func TestGetWithFilters(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	resp, err := http.Get(srv.URL + "/datasets/id-1?name=ad&score=10-20")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[datasetJSON](t, resp)
	if got.RowCount != 2 || got.TotalRows != 3 {
		t.Fatalf("row_count=%d total_rows=%d rows=%v", got.RowCount, got.TotalRows, got.Rows)
	}
	for _, row := range got.Rows {
		name := row["name"].(string)
		if name != "Ada" && name != "Adele" {
			t.Errorf("unexpected row %v", row)
		}
	}

	// Unknown query params are ignored, not errors.
	resp, err = http.Get(srv.URL + "/datasets/id-1?page=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with unknown param = %d", resp.StatusCode)
	}
	got = decodeBody[datasetJSON](t, resp)
	if got.RowCount != 3 {
		t.Fatalf("row_count = %d, want 3", got.RowCount)
	}
}

func TestGetMalformedFilter(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	resp, err := http.Get(srv.URL + "/datasets/id-1?score=abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/datasets/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func patchColumn(t *testing.T, srv *httptest.Server, id, column, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPatch,
		srv.URL+"/datasets/"+id+"/columns/"+column, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	return resp
}

func TestSetColumnType(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	resp := patchColumn(t, srv, "id-1", "name", `{"type":"tag"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[datasetJSON](t, resp)
	if got.Schema["name"]["type"] != "tag" {
		t.Fatalf("name type = %v", got.Schema["name"]["type"])
	}
	// Fields were rebuilt under the override: tags render as checkbox with colors.
	var nameField *filterfield.Field
	for i := range got.Fields {
		if got.Fields[i].Value == "name" {
			nameField = &got.Fields[i]
		}
	}
	if nameField == nil || nameField.Widget != filterfield.WidgetCheckbox {
		t.Fatalf("name field = %+v", nameField)
	}
	if len(nameField.Options) != 3 || nameField.Options[0].Color == "" {
		t.Fatalf("name options = %+v", nameField.Options)
	}

	// The override persists.
	getResp, err := http.Get(srv.URL + "/datasets/id-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	after := decodeBody[datasetJSON](t, getResp)
	if after.Schema["name"]["type"] != "tag" {
		t.Fatalf("type after reload = %v", after.Schema["name"]["type"])
	}
}

func TestSetColumnTypeErrors(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	resp := patchColumn(t, srv, "id-1", "name", `{"type":"uuid"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown type status = %d, want 400", resp.StatusCode)
	}

	resp = patchColumn(t, srv, "id-1", "ghost", `{"type":"tag"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown column status = %d, want 404", resp.StatusCode)
	}

	resp = patchColumn(t, srv, "id-1", "name", `{broken`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteDataset(t *testing.T) {
	t.Parallel()
	_, srv := newTestServer(t)

	createSample(t, srv)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/datasets/id-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}
