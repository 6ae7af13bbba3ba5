package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fondo/internal/core"
	"fondo/internal/ledger"
)

type createGoalRequest struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Target     string `json:"target"`
	TargetDate string `json:"target_date"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	target, err := core.ParseDecimalToCents(req.Target)
	if err != nil {
		badRequest(w, "invalid target: "+err.Error())
		return
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		d, err := parseDate(req.TargetDate)
		if err != nil {
			badRequest(w, "invalid target_date: expected YYYY-MM-DD")
			return
		}
		targetDate = &d
	}

	id, err := s.svc.CreateGoal(r.Context(), core.SavingsGoal{
		Owner:       strings.TrimSpace(req.Owner),
		Name:        strings.TrimSpace(req.Name),
		TargetCents: target,
		TargetDate:  targetDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		badRequest(w, "owner is required")
		return
	}
	goals, err := s.svc.ListGoals(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": toGoalResponses(goals)})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}
	goal, err := s.svc.GetGoal(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}
	owner := ownerFromRequest(r)
	if err := s.svc.DeleteGoal(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGoalAllocated(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}
	owner := ownerFromRequest(r)
	allocated, err := s.cachedAmount(owner+":allocated:"+strconv.FormatInt(id, 10), func() (core.Money, error) {
		return s.svc.GoalAllocated(r.Context(), owner, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountResponse(allocated))
}

func (s *Server) handleMaxAllocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}
	walletID, err := strconv.ParseInt(r.URL.Query().Get("wallet_id"), 10, 64)
	if err != nil {
		badRequest(w, "wallet_id is required")
		return
	}
	max, err := s.svc.MaxAllocation(r.Context(), ownerFromRequest(r), id, walletID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountResponse(max))
}

// applyAllocationRequest replaces a goal's funding plan wholesale. The
// map is wallet id to desired amount; wallets an earlier plan funded but
// the new plan omits are deallocated.
type applyAllocationRequest struct {
	Owner       string           `json:"owner"`
	Allocations map[string]int64 `json:"allocations"`
}

func (s *Server) handleApplyAllocation(w http.ResponseWriter, r *http.Request) {
	goalID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid goal id")
		return
	}
	var req applyAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	desired := make(map[int64]int64, len(req.Allocations))
	for walletKey, cents := range req.Allocations {
		walletID, err := strconv.ParseInt(walletKey, 10, 64)
		if err != nil {
			badRequest(w, "invalid wallet id in allocations: "+walletKey)
			return
		}
		desired[walletID] = cents
	}

	result, err := s.svc.ApplyAllocation(r.Context(), strings.TrimSpace(req.Owner), goalID, desired)
	if err != nil {
		var recErr *ledger.ReconciliationError
		if errors.As(err, &recErr) {
			reconciliationFailures.Inc()
		}
		writeError(w, err)
		return
	}

	s.invalidateOwner(strings.TrimSpace(req.Owner))
	allocationsApplied.Inc()
	if result.Clamped {
		allocationsClamped.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"goal_id":     result.GoalID,
		"applied":     result.Applied,
		"total_cents": result.Total.Cents,
		"total":       result.Total.String(),
		"clamped":     result.Clamped,
	})
}
