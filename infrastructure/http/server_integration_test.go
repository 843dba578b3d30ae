package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"storedesk/api/bmr"
	"storedesk/api/ledger"
	"storedesk/infrastructure/audit"
	"storedesk/infrastructure/sqlite"
	"storedesk/models"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
}

func setupIntegrationServer(t *testing.T) *integrationEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "server-integration.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewServer("127.0.0.1:0", db, audit.NewService(), 255, ledger.TotalModeSubtract)
	ts := httptest.NewServer(s.router)
	env := &integrationEnv{server: ts, db: db}
	t.Cleanup(func() {
		env.server.Close()
		_ = env.db.Close()
	})
	return env
}

func (env *integrationEnv) postJSON(t *testing.T, path string, body any, wantStatus int, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal %s body: %v", path, err)
	}
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status %d, want %d: %s", path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s response: %v: %s", path, err, raw)
		}
	}
}

func (env *integrationEnv) getJSON(t *testing.T, path string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(env.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status %d, want %d: %s", path, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s response: %v: %s", path, err, raw)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupIntegrationServer(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("expected ok body, got %q", body)
	}
}

// TestOrderCycleEndToEnd walks one full cycle over the HTTP surface: master
// data, worksheet edits, order creation, grouping, factory assignment and
// the barcode release.
func TestOrderCycleEndToEnd(t *testing.T) {
	env := setupIntegrationServer(t)

	var store models.Store
	env.postJSON(t, "/api/stores", map[string]any{"company_code": "ST-01", "name": "Alpha Mart"}, http.StatusCreated, &store)

	var item models.Item
	env.postJSON(t, "/api/items", map[string]any{"company_code": "IT-01", "name": "Cola 330ml", "reorder_point": 100}, http.StatusCreated, &item)

	// The worksheet creates its rows lazily on first load.
	var page struct {
		Rows []struct {
			ID int64 `json:"id"`
		} `json:"rows"`
	}
	env.getJSON(t, fmt.Sprintf("/api/stores/%d/worksheet", store.ID), http.StatusOK, &page)
	if len(page.Rows) != 1 {
		t.Fatalf("expected one worksheet row, got %d", len(page.Rows))
	}
	rowID := page.Rows[0].ID

	env.postJSON(t, fmt.Sprintf("/api/stores/%d/worksheet/batch", store.ID), []map[string]any{
		{"id": rowID, "changes": map[string]any{"order_qty": 3, "inventory": 2, "final_order": 20}},
	}, http.StatusOK, nil)

	var order models.Order
	env.postJSON(t, fmt.Sprintf("/api/stores/%d/orders", store.ID), map[string]any{"notes": "first run"}, http.StatusCreated, &order)
	if order.PONumber != 1 {
		t.Fatalf("expected PO number 1, got %d", order.PONumber)
	}

	var groups []bmr.GroupedItem
	env.getJSON(t, "/api/bmr/grouped", http.StatusOK, &groups)
	if len(groups) != 1 || groups[0].TotalFinalOrder != 20 {
		t.Fatalf("unexpected grouping: %+v", groups)
	}

	var cycle models.BMRCycle
	env.postJSON(t, "/api/bmr/cycles", nil, http.StatusCreated, &cycle)

	env.postJSON(t, fmt.Sprintf("/api/bmr/cycles/%d/assign", cycle.ID), map[string]any{
		"assignments": []map[string]any{
			{"item_id": item.ID, "assigned_factory": "m30", "total_final_order": 20, "item_name": "Cola 330ml"},
		},
	}, http.StatusOK, nil)

	var entries []models.BarcodeLedgerEntry
	env.getJSON(t, fmt.Sprintf("/api/bmr/cycles/%d/entries", cycle.ID), http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].M30 != 20 {
		t.Fatalf("unexpected cycle entries: %+v", entries)
	}
	entryID := entries[0].ID

	// Record reconciliation counts mid-cycle, then release.
	env.postJSON(t, "/api/ledger/batch", []map[string]any{
		{"id": entryID, "changes": map[string]any{"actual": 40, "purchase": 10, "returns": 5}},
	}, http.StatusOK, nil)

	var release ledger.GenerateResult
	env.postJSON(t, fmt.Sprintf("/api/bmr/cycles/%d/generate", cycle.ID), []map[string]any{}, http.StatusOK, &release)
	if release.ReleaseNumber != 1 || release.EntriesCommitted != 1 {
		t.Fatalf("unexpected release result: %+v", release)
	}
	if release.StoresReset != 1 {
		t.Fatalf("expected the processed store reset, got %+v", release)
	}

	// endbal 55 rolled into begbal; the store re-opened for the next round.
	var entry models.BarcodeLedgerEntry
	env.getJSON(t, fmt.Sprintf("/api/ledger/%d", entryID), http.StatusOK, &entry)
	if entry.BegBal != 55 || entry.EndBal != 0 {
		t.Fatalf("expected roll-forward, got begbal=%d endbal=%d", entry.BegBal, entry.EndBal)
	}
	if entry.ReleaseNumber == nil || *entry.ReleaseNumber != 1 {
		t.Fatalf("expected release number stamped, got %v", entry.ReleaseNumber)
	}

	var reopened models.Store
	env.getJSON(t, fmt.Sprintf("/api/stores/%d", store.ID), http.StatusOK, &reopened)
	if reopened.IsProcessed {
		t.Fatalf("expected store re-opened after release")
	}

	// Releasing the same cycle twice conflicts.
	env.postJSON(t, fmt.Sprintf("/api/bmr/cycles/%d/generate", cycle.ID), []map[string]any{}, http.StatusConflict, nil)
}

func TestItemBarcodePNG(t *testing.T) {
	env := setupIntegrationServer(t)

	var item models.Item
	env.postJSON(t, "/api/items", map[string]any{"company_code": "IT-01", "name": "Cola 330ml"}, http.StatusCreated, &item)

	resp, err := http.Get(env.server.URL + fmt.Sprintf("/api/items/%d/barcode.png", item.ID))
	if err != nil {
		t.Fatalf("GET barcode: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("expected PNG payload")
	}
}

func TestStoreImportCSVOverHTTP(t *testing.T) {
	env := setupIntegrationServer(t)

	csvBody := "company_code,name\nST-01,Alpha Mart\nST-02,Beta Mart\n"
	resp, err := http.Post(env.server.URL+"/api/stores/import", "text/csv", strings.NewReader(csvBody))
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var summary struct {
		Inserted int `json:"inserted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", summary.Inserted)
	}
}
