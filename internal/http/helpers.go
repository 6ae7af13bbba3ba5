package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fondo/internal/core"
	"fondo/internal/ledger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Validation failures
// are 422 (the request was well-formed JSON but semantically wrong),
// missing resources 404, conflicts 409. A failed allocation session
// carries the goal's actual post-failure allocation so clients can
// resync instead of trusting their last request.
func writeError(w http.ResponseWriter, err error) {
	var recErr *ledger.ReconciliationError
	if errors.As(err, &recErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":        recErr.Error(),
			"goal_id":      recErr.GoalID,
			"phase":        string(recErr.Phase),
			"actual_cents": recErr.Actual.Cents,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateBudget):
		status = http.StatusConflict
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidKind,
		core.ErrInvalidTransfer,
		core.ErrEmptyOwner,
		core.ErrEmptyName,
		core.ErrEmptyCategory,
		core.ErrInvalidTarget,
		core.ErrInvalidPeriod,
		core.ErrMissingDate,
		core.ErrGoalOnNonSaving,
		ledger.ErrCrossOwnerRef,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// ownerFromRequest reads the acting owner from the query string, falling
// back to the X-Owner header for POST bodies that omit it.
func ownerFromRequest(r *http.Request) string {
	if owner := strings.TrimSpace(r.URL.Query().Get("owner")); owner != "" {
		return owner
	}
	return strings.TrimSpace(r.Header.Get("X-Owner"))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// parseAmount parses a decimal amount string into cents. A leading '-'
// makes the amount negative; the magnitude grammar is the same one used
// everywhere amounts enter the system.
func parseAmount(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return core.Money{}, err
	}
	if neg {
		cents = -cents
	}
	return core.Money{Cents: cents}, nil
}

// parseDate parses a date in YYYY-MM-DD format.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// parseYearMonth extracts year and month from query parameters,
// defaulting to the current period.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}

type entryResponse struct {
	ID           int64  `json:"id"`
	Owner        string `json:"owner"`
	AmountCents  int64  `json:"amount_cents"`
	Amount       string `json:"amount"`
	Kind         string `json:"kind"`
	WalletID     *int64 `json:"wallet_id,omitempty"`
	GoalID       *int64 `json:"goal_id,omitempty"`
	Tag          string `json:"tag,omitempty"`
	TransferKind string `json:"transfer_kind,omitempty"`
	OccurredAt   string `json:"occurred_at"`
	RecordedAt   string `json:"recorded_at"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		Owner:        e.Owner,
		AmountCents:  e.Amount.Cents,
		Amount:       e.Amount.String(),
		Kind:         string(e.Kind),
		WalletID:     e.WalletID,
		GoalID:       e.GoalID,
		Tag:          e.Tag,
		TransferKind: string(e.TransferKind),
		OccurredAt:   e.OccurredAt.Format("2006-01-02"),
		RecordedAt:   e.RecordedAt.Format(time.RFC3339),
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type walletResponse struct {
	ID    int64  `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
}

func toWalletResponse(w core.Wallet) walletResponse {
	return walletResponse{ID: w.ID, Owner: w.Owner, Name: w.Name, Icon: w.Icon}
}

func toWalletResponses(wallets []core.Wallet) []walletResponse {
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, toWalletResponse(w))
	}
	return out
}

type goalResponse struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	TargetCents int64  `json:"target_cents"`
	TargetDate  string `json:"target_date,omitempty"`
}

func toGoalResponse(g core.SavingsGoal) goalResponse {
	resp := goalResponse{ID: g.ID, Owner: g.Owner, Name: g.Name, TargetCents: g.TargetCents}
	if g.TargetDate != nil {
		resp.TargetDate = g.TargetDate.Format("2006-01-02")
	}
	return resp
}

func toGoalResponses(goals []core.SavingsGoal) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	return out
}

type budgetResponse struct {
	ID         int64  `json:"id"`
	Owner      string `json:"owner"`
	Category   string `json:"category"`
	LimitCents int64  `json:"limit_cents"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{ID: b.ID, Owner: b.Owner, Category: b.Category, LimitCents: b.LimitCents, Month: b.Month, Year: b.Year}
}

func toBudgetResponses(budgets []core.Budget) []budgetResponse {
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	return out
}

type amountResponse struct {
	Cents  int64  `json:"cents"`
	Amount string `json:"amount"`
}

func toAmountResponse(m core.Money) amountResponse {
	return amountResponse{Cents: m.Cents, Amount: m.String()}
}
