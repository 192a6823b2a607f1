package http

import (
	"net/http"

	"tally/internal/log"
	"tally/internal/store"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	st := s.storeFor(session(r).UserID)
	if err := st.RefreshCategories(r.Context()); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Categories())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.storeFor(sess.UserID).AddCategory(r.Context(), in)
	if err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpCreate, store.EntityCategory, created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(sess.UserID).UpdateCategory(r.Context(), r.PathValue("id"), in); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpUpdate, store.EntityCategory, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteCategory deletes the category; its transactions survive with
// the category reference cleared.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := s.storeFor(sess.UserID).DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpDelete, store.EntityCategory, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
