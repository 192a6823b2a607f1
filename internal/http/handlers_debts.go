package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/store"
)

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(session(r).UserID)
	if err := st.RefreshDebts(r.Context()); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Debts())
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var in store.DebtInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.storeFor(session(r).UserID).AddDebt(r.Context(), in)
	if err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.logMutation(r, log.OpCreate, store.EntityDebt, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	var in store.DebtInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(session(r).UserID).UpdateDebt(r.Context(), r.PathValue("id"), in); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.logMutation(r, log.OpUpdate, store.EntityDebt, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := s.storeFor(session(r).UserID).DeleteDebt(r.Context(), r.PathValue("id")); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.logMutation(r, log.OpDelete, store.EntityDebt, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type debtStatusRequest struct {
	Status core.DebtStatus `json:"status"`
}

func (s *Server) handleUpdateDebtStatus(w http.ResponseWriter, r *http.Request) {
	var in debtStatusRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(session(r).UserID).SetDebtStatus(r.Context(), r.PathValue("id"), in.Status); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.logMutation(r, log.OpUpdate, store.EntityDebt, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
