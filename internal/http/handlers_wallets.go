package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fondo/internal/core"
)

type createWalletRequest struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Owner == "" {
		req.Owner = ownerFromRequest(r)
	}

	id, err := s.svc.CreateWallet(r.Context(), core.Wallet{
		Owner: strings.TrimSpace(req.Owner),
		Name:  strings.TrimSpace(req.Name),
		Icon:  strings.TrimSpace(req.Icon),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromRequest(r)
	if owner == "" {
		badRequest(w, "owner is required")
		return
	}
	wallets, err := s.svc.ListWallets(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallets": toWalletResponses(wallets)})
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid wallet id")
		return
	}
	wallet, err := s.svc.GetWallet(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid wallet id")
		return
	}
	owner := ownerFromRequest(r)
	if err := s.svc.DeleteWallet(r.Context(), owner, id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid wallet id")
		return
	}
	owner := ownerFromRequest(r)
	balance, err := s.cachedAmount(owner+":balance:"+strconv.FormatInt(id, 10), func() (core.Money, error) {
		return s.svc.WalletBalance(r.Context(), owner, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountResponse(balance))
}

func (s *Server) handleWalletSavings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid wallet id")
		return
	}
	owner := ownerFromRequest(r)
	savings, err := s.cachedAmount(owner+":savings:"+strconv.FormatInt(id, 10), func() (core.Money, error) {
		return s.svc.WalletSavingsTotal(r.Context(), owner, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAmountResponse(savings))
}
