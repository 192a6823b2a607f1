package http

import (
	"net/http"

	"tally/internal/budget"
	"tally/internal/core"
	"tally/internal/dateutil"
	"tally/internal/log"
	"tally/internal/store"
)

// handleBudgetView returns the aggregated budget for a month. The month
// query parameter (YYYY-MM or YYYY-MM-DD) moves the active range; without
// it the view covers the range's current month. Responses are served from
// the per-user cache until a mutation invalidates it.
func (s *Server) handleBudgetView(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	st := s.storeFor(sess.UserID)
	ctx := r.Context()

	if month := r.URL.Query().Get("month"); month != "" {
		if len(month) == 7 {
			month += "-01"
		}
		if !core.ValidDate(month) {
			writeError(w, http.StatusUnprocessableEntity, "month must be YYYY-MM")
			return
		}
		if err := st.SetRange(ctx, dateutil.StartOfMonthISO(month), dateutil.EndOfMonthISO(month)); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return
		}
	}

	start, end := st.Range()
	key := budgetCacheKey(sess.UserID, start, end)
	if cached, ok := s.budgetCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	if err := st.RefreshCategories(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	if err := st.RefreshTransactions(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	if err := st.RefreshBudget(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}

	summary := budget.Summarize(st.Categories(), st.Allocations(), st.Incomes(), st.Transactions())
	s.budgetCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}

type plannedRequest struct {
	CategoryID string `json:"category_id"`
	Planned    string `json:"planned"`
	Rollover   bool   `json:"rollover"`
	Sinking    bool   `json:"is_sinking"`
}

func (s *Server) handleSetPlanned(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in plannedRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.storeFor(sess.UserID).SetPlanned(r.Context(), in.CategoryID, in.Planned, in.Rollover, in.Sinking); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpUpdate, store.EntityAllocation, in.CategoryID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	var in store.IncomeInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.storeFor(sess.UserID).AddIncome(r.Context(), in)
	if err != nil {
		s.writeBackendError(r.Context(), w, err)
		return
	}
	s.invalidateBudget(sess.UserID)
	s.logMutation(r, log.OpCreate, store.EntityIncome, created.ID)
	writeJSON(w, http.StatusCreated, created)
}
