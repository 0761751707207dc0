package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/report"
	"ledger/internal/services"
	"ledger/internal/store"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Balance Sheet API"})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := s.ledger.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	s.invalidate(r.Context())
	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}

// handleListTransactions returns at most store.MaxListLimit rows, newest
// first. A smaller limit may be requested with ?limit=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	typ, err := parseType(q)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	limit := min(parsePositive(q, "limit", store.MaxListLimit), store.MaxListLimit)

	txs, err := s.ledger.List(r.Context(), store.Query{Range: rng, Type: typ, Limit: limit})
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionList(txs))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpSummary, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), rng)
	if err != nil {
		writeError(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(sum))
}

// series parses the range and loads its day buckets, writing the error
// response itself on failure.
func (s *Server) series(w http.ResponseWriter, r *http.Request) ([]ledger.ChartPoint, bool) {
	rng, err := parseRange(r.URL.Query())
	if err == nil {
		var series []ledger.ChartPoint
		if series, err = s.ledger.Series(r.Context(), rng); err == nil {
			return series, true
		}
	}
	writeError(w, r, log.OpSummary, err)
	return nil, false
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if series, ok := s.series(w, r); ok {
		writeJSON(w, http.StatusOK, newChartResponse(ledger.Columns(series)))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if series, ok := s.series(w, r); ok {
		writeJSON(w, http.StatusOK, newStatsResponse(ledger.ComputeStats(series)))
	}
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		writeError(w, r, log.OpDelete, badRequest("transaction id is required"))
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	s.invalidate(r.Context())
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction deleted successfully"})
}

// handleDashboard serves the combined view for a range and page. A request
// overtaken by a newer one gets 204; a failed load falls back to the last
// good view with NoticeHeader set.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(q)
	if err != nil {
		writeError(w, r, log.OpView, err)
		return
	}
	vq := services.ViewQuery{
		Range:    rng,
		Page:     parsePositive(q, "page", 1),
		PageSize: min(parsePositive(q, "page_size", s.opts.PageSize), store.MaxListLimit),
	}

	key := dashboardKey(vq)
	if v, ok := s.dashboard.Get(key); ok {
		writeJSON(w, http.StatusOK, newDashboardResponse(v))
		return
	}

	v, err := s.viewLoader(r).Load(r.Context(), vq)
	switch {
	case errors.Is(err, services.ErrStaleView):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil && v != nil:
		status := statusFor(err)
		log.FromContext(r.Context()).WarnContext(r.Context(), "Serving last good dashboard",
			log.FieldOperation, log.OpView, log.FieldError, err)
		w.Header().Set(NoticeHeader, errorMessage(err, status).Error)
		writeJSON(w, http.StatusOK, newDashboardResponse(v))
		return
	case err != nil:
		writeError(w, r, log.OpView, err)
		return
	}
	s.dashboard.Set(key, v)
	writeJSON(w, http.StatusOK, newDashboardResponse(v))
}

func dashboardKey(q services.ViewQuery) string {
	return q.Range.Start.String() + "|" + q.Range.End.String() + "|" +
		strconv.Itoa(q.Page) + "|" + strconv.Itoa(q.PageSize)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	out, doc, err := s.ledger.Report(r.Context(), rng, report.Options{
		Title:          s.opts.ReportTitle,
		CurrencySymbol: s.opts.CurrencySymbol,
		Now:            s.opts.Now(),
	})
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"cache":        map[string]any{"dashboard_entries": s.dashboard.Size()},
		"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients(), "hits": s.limiter.Hits()},
	}
	if err := s.ledger.Ping(ctx); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["store"] = "failed: " + err.Error()
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
