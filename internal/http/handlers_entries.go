package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fondo/internal/core"
	"fondo/internal/ledger"
)

type appendEntryRequest struct {
	Owner        string `json:"owner"`
	Amount       string `json:"amount"`
	Kind         string `json:"kind"`
	WalletID     *int64 `json:"wallet_id"`
	GoalID       *int64 `json:"goal_id"`
	Tag          string `json:"tag"`
	TransferKind string `json:"transfer_kind"`
	OccurredAt   string `json:"occurred_at"`
}

func (s *Server) handleAppendEntry(w http.ResponseWriter, r *http.Request) {
	var req appendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount: "+err.Error())
		return
	}
	occurredAt, err := parseDate(req.OccurredAt)
	if err != nil {
		badRequest(w, "invalid occurred_at: expected YYYY-MM-DD")
		return
	}

	entry := core.Entry{
		Owner:        strings.TrimSpace(req.Owner),
		Amount:       amount,
		Kind:         core.EntryKind(req.Kind),
		WalletID:     req.WalletID,
		GoalID:       req.GoalID,
		Tag:          strings.TrimSpace(req.Tag),
		TransferKind: core.TransferKind(req.TransferKind),
		OccurredAt:   occurredAt,
	}

	id, err := s.svc.AppendEntry(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateOwner(entry.Owner)
	entriesAppended.WithLabelValues(req.Kind).Inc()
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	entry, err := s.svc.GetEntry(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

type editEntryRequest struct {
	Amount     *string `json:"amount"`
	Tag        *string `json:"tag"`
	OccurredAt *string `json:"occurred_at"`
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	var req editEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	var patch core.EntryPatch
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			badRequest(w, "invalid amount: "+err.Error())
			return
		}
		patch.Amount = &amount
	}
	if req.Tag != nil {
		tag := strings.TrimSpace(*req.Tag)
		patch.Tag = &tag
	}
	if req.OccurredAt != nil {
		occurredAt, err := parseDate(*req.OccurredAt)
		if err != nil {
			badRequest(w, "invalid occurred_at: expected YYYY-MM-DD")
			return
		}
		patch.OccurredAt = &occurredAt
	}

	entry, err := s.svc.EditEntry(r.Context(), ownerFromRequest(r), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(entry.Owner)
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	owner := ownerFromRequest(r)
	if err := s.svc.RemoveEntry(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		badRequest(w, "owner is required")
		return
	}

	f := ledger.Filter{
		Owner: owner,
		Kind:  core.EntryKind(r.URL.Query().Get("kind")),
		Tag:   r.URL.Query().Get("tag"),
	}
	if v := r.URL.Query().Get("wallet_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid wallet_id")
			return
		}
		f.WalletID = &id
	}
	if v := r.URL.Query().Get("goal_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid goal_id")
			return
		}
		f.GoalID = &id
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := parseDate(v)
		if err != nil {
			badRequest(w, "invalid from: expected YYYY-MM-DD")
			return
		}
		f.From = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := parseDate(v)
		if err != nil {
			badRequest(w, "invalid to: expected YYYY-MM-DD")
			return
		}
		f.To = to
	}

	entries, err := s.svc.Entries(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toEntryResponses(entries)})
}

type transferRequest struct {
	Owner      string `json:"owner"`
	FromWallet int64  `json:"from_wallet"`
	ToWallet   int64  `json:"to_wallet"`
	Amount     string `json:"amount"`
	Kind       string `json:"kind"`
	Tag        string `json:"tag"`
	OccurredAt string `json:"occurred_at"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, "invalid amount: "+err.Error())
		return
	}
	occurredAt, err := parseDate(req.OccurredAt)
	if err != nil {
		badRequest(w, "invalid occurred_at: expected YYYY-MM-DD")
		return
	}

	kind := core.TransferKind(req.Kind)
	if kind == core.TransferNone {
		kind = core.TransferWalletToWallet
	}

	outID, inID, err := s.svc.Transfer(r.Context(), strings.TrimSpace(req.Owner), req.FromWallet, req.ToWallet, amount, kind, strings.TrimSpace(req.Tag), occurredAt)
	if err != nil {
		writeError(w, err)
		return
	}

	s.invalidateOwner(strings.TrimSpace(req.Owner))
	entriesAppended.WithLabelValues(string(core.KindTransfer)).Add(2)
	writeJSON(w, http.StatusCreated, map[string]int64{"out_id": outID, "in_id": inID})
}
