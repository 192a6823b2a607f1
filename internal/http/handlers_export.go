package http

import (
	"fmt"
	"net/http"

	"tally/internal/export"
	"tally/internal/store"
)

// exportStore refreshes everything an export needs and returns the store.
func (s *Server) exportStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	st := s.storeFor(session(r).UserID)
	ctx := r.Context()

	if start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end"); start != "" && end != "" {
		if err := st.SetRange(ctx, start, end); err != nil {
			s.writeBackendError(r.Context(), w, err)
			return nil, false
		}
	} else if err := st.RefreshTransactions(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return nil, false
	}
	if err := st.RefreshAccounts(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return nil, false
	}
	if err := st.RefreshCategories(ctx); err != nil {
		s.writeBackendError(r.Context(), w, err)
		return nil, false
	}
	return st, true
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	st, ok := s.exportStore(w, r)
	if !ok {
		return
	}

	start, end := st.Range()
	csv := export.TransactionsCSV(st.Transactions(), st.AccountNames(), st.CategoryNames())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "transactions_"+start+"_"+end+".csv"))
	_, _ = w.Write([]byte(csv))
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	st, ok := s.exportStore(w, r)
	if !ok {
		return
	}

	start, end := st.Range()
	pdf, err := export.TransactionsPDF(st.Transactions(), st.AccountNames(), st.CategoryNames(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "transactions_"+start+"_"+end+".pdf"))
	_, _ = w.Write(pdf)
}
