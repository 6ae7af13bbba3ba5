package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"fondo/internal/core"
)

type createBudgetRequest struct {
	Owner    string `json:"owner"`
	Category string `json:"category"`
	Limit    string `json:"limit"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	limit, err := core.ParseDecimalToCents(req.Limit)
	if err != nil {
		badRequest(w, "invalid limit: "+err.Error())
		return
	}

	id, err := s.svc.CreateBudget(r.Context(), core.Budget{
		Owner:      strings.TrimSpace(req.Owner),
		Category:   strings.TrimSpace(req.Category),
		LimitCents: limit,
		Month:      req.Month,
		Year:       req.Year,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		badRequest(w, "owner is required")
		return
	}
	year, month := parseYearMonth(r)
	budgets, err := s.svc.ListBudgets(r.Context(), owner, year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": toBudgetResponses(budgets)})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid budget id")
		return
	}
	budget, err := s.svc.GetBudget(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid budget id")
		return
	}
	if err := s.svc.DeleteBudget(r.Context(), ownerFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBudgetSpent reports the month's spending for a category. The
// figure is a fold over expense entries, so an edited or removed expense
// is reflected on the next read.
func (s *Server) handleBudgetSpent(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		badRequest(w, "owner is required")
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		badRequest(w, "category is required")
		return
	}
	year, month := parseYearMonth(r)

	key := fmt.Sprintf("%s:spent:%s:%04d-%02d", owner, category, year, month)
	spent, err := s.cachedAmount(key, func() (core.Money, error) {
		return s.svc.BudgetSpent(r.Context(), owner, category, year, month)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"year":     year,
		"month":    month,
		"cents":    spent.Cents,
		"amount":   spent.String(),
	})
}
