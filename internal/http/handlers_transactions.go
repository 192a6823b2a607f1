package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/search"
	"tally/internal/store"
)

type transactionsResponse struct {
	Start        string             `json:"start"`
	End          string             `json:"end"`
	Transactions []core.Transaction `json:"transactions"`
}

// handleListTransactions returns the transactions in the active range.
// Query parameters: preset (today, 7d, month) or start/end to move the
// range, and q for the free-text filter.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	st := s.storeFor(sess.UserID)
	ctx := r.Context()
	params := r.URL.Query()

	switch {
	case params.Get("preset") != "":
		if err := st.SetPreset(ctx, params.Get("preset")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case params.Get("start") != "" || params.Get("end") != "":
		start, end := params.Get("start"), params.Get("end")
		if start == "" {
			start = end
		}
		if end == "" {
			end = start
		}
		if err := st.SetRange(ctx, start, end); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return
		}
	default:
		if err := st.RefreshTransactions(ctx); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return
		}
	}

	txns := st.Transactions()
	if query := params.Get("q"); query != "" {
		// Name lookups back the acc: and cat: tokens.
		if err := st.RefreshAccounts(ctx); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return
		}
		if err := st.RefreshCategories(ctx); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return
		}
		accounts := search.Lookup(st.AccountNames())
		categories := search.Lookup(st.CategoryNames())

		filtered := txns[:0]
		for _, tx := range txns {
			if search.Matches(tx, query, accounts, categories) {
				filtered = append(filtered, tx)
			}
		}
		txns = filtered
	}

	start, end := st.Range()
	writeJSON(w, http.StatusOK, transactionsResponse{
		Start:        start,
		End:          end,
		Transactions: txns,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st := s.storeFor(sess.UserID)
	// The amount defaults to the account's currency, so the accounts cache
	// must be warm before building the transaction.
	if err := st.RefreshAccounts(r.Context()); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}

	created, err := st.AddTransaction(r.Context(), in)
	if err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpCreate, store.EntityTransaction, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.TransactionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(sess.UserID).UpdateTransaction(r.Context(), r.PathValue("id"), in); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpUpdate, store.EntityTransaction, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := s.storeFor(sess.UserID).DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpDelete, store.EntityTransaction, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
