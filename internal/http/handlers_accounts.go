package http

import (
	"net/http"

	"tally/internal/log"
	"tally/internal/store"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(session(r).UserID)
	if err := st.RefreshAccounts(r.Context()); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Accounts())
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.storeFor(sess.UserID).AddAccount(r.Context(), in)
	if err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpCreate, store.EntityAccount, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(sess.UserID).UpdateAccount(r.Context(), r.PathValue("id"), in); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpUpdate, store.EntityAccount, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAccount deletes the account along with its transactions.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := s.storeFor(sess.UserID).DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpDelete, store.EntityAccount, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
