package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fondo/internal/ledger"
	"fondo/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(ledger.NewMemoryStore(), nil)
	t.Cleanup(func() { svc.Close() })
	return NewServer(":0", svc)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func createWallet(t *testing.T, srv *Server, owner, name string) int64 {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/wallets", map[string]string{"owner": owner, "name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create wallet: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int64
	decode(t, rec, &resp)
	return resp["id"]
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAppendEntryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	rec := doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner":       "anna",
		"amount":      "123.45",
		"kind":        "income",
		"wallet_id":   walletID,
		"occurred_at": "2026-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var created map[string]int64
	decode(t, rec, &created)

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/entries/%d?owner=anna", created["id"]), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	var entry entryResponse
	decode(t, rec, &entry)
	if entry.AmountCents != 12345 || entry.Kind != "income" || entry.OccurredAt != "2026-03-10" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestAppendEntryValidation(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	// A negative expense is malformed at the amount-grammar level: the
	// sign never rides along with income or expense magnitudes.
	rec := doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner":       "anna",
		"amount":      "-50.00",
		"kind":        "expense",
		"wallet_id":   walletID,
		"occurred_at": "2026-03-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative expense: status %d, want 422", rec.Code)
	}

	// Unknown kind fails domain validation.
	rec = doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner":       "anna",
		"amount":      "50.00",
		"kind":        "withdrawal",
		"wallet_id":   walletID,
		"occurred_at": "2026-03-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown kind: status %d, want 422", rec.Code)
	}

	// Garbage date is a malformed request.
	rec = doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner":       "anna",
		"amount":      "50.00",
		"kind":        "expense",
		"wallet_id":   walletID,
		"occurred_at": "soon",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d, want 400", rec.Code)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/entries/99?owner=anna", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestEditAndRemoveEntryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	rec := doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "anna", "amount": "20.00", "kind": "expense",
		"wallet_id": walletID, "tag": "food", "occurred_at": "2026-03-10",
	})
	var created map[string]int64
	decode(t, rec, &created)
	id := created["id"]

	rec = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/entries/%d?owner=anna", id), map[string]any{
		"amount": "25.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status %d, body %s", rec.Code, rec.Body.String())
	}
	var entry entryResponse
	decode(t, rec, &entry)
	if entry.AmountCents != 2500 || entry.Tag != "food" {
		t.Errorf("unexpected entry after edit %+v", entry)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/entries/%d?owner=anna", id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/entries/%d?owner=anna", id), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d after delete, want 404", rec.Code)
	}
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	w1 := createWallet(t, srv, "anna", "Cash")
	w2 := createWallet(t, srv, "anna", "Bank")

	// Seed the source wallet.
	doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "anna", "amount": "100.00", "kind": "income",
		"wallet_id": w1, "occurred_at": "2026-03-01",
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"owner": "anna", "from_wallet": w1, "to_wallet": w2,
		"amount": "40.00", "occurred_at": "2026-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int64
	decode(t, rec, &resp)
	if resp["out_id"] == 0 || resp["in_id"] == 0 {
		t.Errorf("missing leg ids: %+v", resp)
	}

	var balance amountResponse
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/wallets/%d/balance?owner=anna", w1), nil)
	decode(t, rec, &balance)
	if balance.Cents != 6000 {
		t.Errorf("source balance = %d, want 6000", balance.Cents)
	}
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/wallets/%d/balance?owner=anna", w2), nil)
	decode(t, rec, &balance)
	if balance.Cents != 4000 {
		t.Errorf("destination balance = %d, want 4000", balance.Cents)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	rec := doJSON(t, srv, http.MethodPost, "/api/budgets", map[string]any{
		"owner": "anna", "category": "food", "limit": "300.00", "month": 3, "year": 2026,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget status %d, body %s", rec.Code, rec.Body.String())
	}

	// Same period again conflicts.
	rec = doJSON(t, srv, http.MethodPost, "/api/budgets", map[string]any{
		"owner": "anna", "category": "food", "limit": "300.00", "month": 3, "year": 2026,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate budget status %d, want 409", rec.Code)
	}

	doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "anna", "amount": "45.50", "kind": "expense",
		"wallet_id": walletID, "tag": "food", "occurred_at": "2026-03-12",
	})

	rec = doJSON(t, srv, http.MethodGet, "/api/budgets/spent?owner=anna&category=food&year=2026&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("spent status %d", rec.Code)
	}
	var spent struct {
		Cents int64 `json:"cents"`
	}
	decode(t, rec, &spent)
	if spent.Cents != 4550 {
		t.Errorf("spent = %d, want 4550", spent.Cents)
	}
}

func TestAllocationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	rec := doJSON(t, srv, http.MethodPost, "/api/goals", map[string]any{
		"owner": "anna", "name": "Vacation", "target": "80.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal status %d, body %s", rec.Code, rec.Body.String())
	}
	var created map[string]int64
	decode(t, rec, &created)
	goalID := created["id"]

	// Savings in the wallet, 100.00 worth.
	doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "anna", "amount": "100.00", "kind": "savings",
		"wallet_id": walletID, "occurred_at": "2026-03-01",
	})

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/goals/%d/max-allocation?owner=anna&wallet_id=%d", goalID, walletID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("max-allocation status %d, body %s", rec.Code, rec.Body.String())
	}
	var max amountResponse
	decode(t, rec, &max)
	if max.Cents != 8000 {
		t.Errorf("max = %d, want 8000 (target bound)", max.Cents)
	}

	// Ask for more than the target allows; the save clamps and says so.
	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/goals/%d/allocations?owner=anna", goalID), map[string]any{
		"allocations": map[string]int64{fmt.Sprint(walletID): 9000},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status %d, body %s", rec.Code, rec.Body.String())
	}
	var result struct {
		TotalCents int64 `json:"total_cents"`
		Clamped    bool  `json:"clamped"`
	}
	decode(t, rec, &result)
	if !result.Clamped {
		t.Error("expected clamped flag")
	}
	if result.TotalCents != 8000 {
		t.Errorf("total = %d, want 8000", result.TotalCents)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/goals/%d/allocated?owner=anna", goalID), nil)
	var allocated amountResponse
	decode(t, rec, &allocated)
	if allocated.Cents != 8000 {
		t.Errorf("allocated = %d, want 8000", allocated.Cents)
	}
}

func TestOwnerIsolation(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	rec := doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "anna", "amount": "10.00", "kind": "income",
		"wallet_id": walletID, "occurred_at": "2026-03-10",
	})
	var created map[string]int64
	decode(t, rec, &created)

	// Another owner sees not-found, not forbidden: ids don't leak.
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/entries/%d?owner=bruno", created["id"]), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}

	// Referencing anna's wallet as bruno is a validation failure.
	rec = doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
		"owner": "bruno", "amount": "10.00", "kind": "income",
		"wallet_id": walletID, "occurred_at": "2026-03-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("cross-owner ref status %d, want 422", rec.Code)
	}
}

func TestListEntriesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	for _, day := range []string{"2026-03-05", "2026-03-15", "2026-04-02"} {
		doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
			"owner": "anna", "amount": "10.00", "kind": "expense",
			"wallet_id": walletID, "tag": "food", "occurred_at": day,
		})
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/entries?owner=anna&from=2026-03-01&to=2026-04-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var resp struct {
		Entries []entryResponse `json:"entries"`
	}
	decode(t, rec, &resp)
	if len(resp.Entries) != 2 {
		t.Errorf("expected 2 entries in march, got %d", len(resp.Entries))
	}

	// Owner is mandatory for listing.
	rec = doJSON(t, srv, http.MethodGet, "/api/entries", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing owner status %d, want 400", rec.Code)
	}
}

func TestProjectionCacheInvalidatedByWrites(t *testing.T) {
	srv := newTestServer(t)
	walletID := createWallet(t, srv, "anna", "Cash")

	appendIncome := func(amount string) {
		rec := doJSON(t, srv, http.MethodPost, "/api/entries", map[string]any{
			"owner":       "anna",
			"amount":      amount,
			"kind":        "income",
			"wallet_id":   walletID,
			"occurred_at": "2026-03-10",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("append: status %d, body %s", rec.Code, rec.Body.String())
		}
	}

	balance := func() int64 {
		rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/wallets/%d/balance?owner=anna", walletID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("balance: status %d, body %s", rec.Code, rec.Body.String())
		}
		var resp amountResponse
		decode(t, rec, &resp)
		return resp.Cents
	}

	appendIncome("100.00")
	if got := balance(); got != 10000 {
		t.Fatalf("balance = %d, want 10000", got)
	}

	// The read above is now cached.
	if srv.amounts.Size() == 0 {
		t.Fatal("expected cached projection after read")
	}

	// A write for the owner must drop the cached value so the next read
	// folds the updated ledger.
	appendIncome("50.00")
	if got := balance(); got != 15000 {
		t.Errorf("balance after second income = %d, want 15000", got)
	}
}
