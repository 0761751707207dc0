package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/services"
)

// Amount marshals as a bare JSON number with exactly two fractional digits.
type Amount core.Money

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(core.Money(a).Decimal().StringFixed(2)), nil
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      Amount    `json:"amount"`
	Description string    `json:"description"`
	Category    *string   `json:"category"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      Amount(tx.Amount),
		Description: tx.Description,
		Date:        tx.Date.String(),
		CreatedAt:   tx.CreatedAt.UTC(),
	}
	if tx.Category != "" {
		c := tx.Category
		resp.Category = &c
	}
	return resp
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = newTransactionResponse(tx)
	}
	return out
}

type summaryResponse struct {
	TotalIncome      Amount `json:"total_income"`
	TotalExpenses    Amount `json:"total_expenses"`
	NetProfit        Amount `json:"net_profit"`
	TransactionCount int    `json:"transaction_count"`
}

func newSummaryResponse(s ledger.Summary) summaryResponse {
	return summaryResponse{
		TotalIncome:      Amount(s.TotalIncome),
		TotalExpenses:    Amount(s.TotalExpenses),
		NetProfit:        Amount(s.NetProfit),
		TransactionCount: s.TransactionCount,
	}
}

// chartResponse is the column layout consumed by the trend chart.
type chartResponse struct {
	Labels    []string `json:"labels"`
	Income    []Amount `json:"income"`
	Expenses  []Amount `json:"expenses"`
	NetProfit []Amount `json:"net_profit"`
}

func amounts(ms []core.Money) []Amount {
	out := make([]Amount, len(ms))
	for i, m := range ms {
		out[i] = Amount(m)
	}
	return out
}

func newChartResponse(c ledger.ChartColumns) chartResponse {
	return chartResponse{
		Labels:    c.Labels,
		Income:    amounts(c.Income),
		Expenses:  amounts(c.Expenses),
		NetProfit: amounts(c.NetProfit),
	}
}

type chartPointResponse struct {
	Date      string `json:"date"`
	Income    Amount `json:"income"`
	Expenses  Amount `json:"expenses"`
	NetProfit Amount `json:"net_profit"`
}

type statsResponse struct {
	ActiveDays       int                 `json:"active_days"`
	AvgDailyIncome   Amount              `json:"avg_daily_income"`
	AvgDailyExpenses Amount              `json:"avg_daily_expenses"`
	AvgDailyNet      Amount              `json:"avg_daily_net"`
	BestDay          *chartPointResponse `json:"best_day"`
	WorstDay         *chartPointResponse `json:"worst_day"`
}

func newStatsResponse(st ledger.SeriesStats) statsResponse {
	point := func(p *ledger.ChartPoint) *chartPointResponse {
		if p == nil {
			return nil
		}
		return &chartPointResponse{
			Date:      p.Date.String(),
			Income:    Amount(p.Income),
			Expenses:  Amount(p.Expenses),
			NetProfit: Amount(p.NetProfit),
		}
	}
	return statsResponse{
		ActiveDays:       st.ActiveDays,
		AvgDailyIncome:   Amount(st.AvgDailyIncome),
		AvgDailyExpenses: Amount(st.AvgDailyExpenses),
		AvgDailyNet:      Amount(st.AvgDailyNet),
		BestDay:          point(st.BestDay),
		WorstDay:         point(st.WorstDay),
	}
}

type pageLinkResponse struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

type pageResponse struct {
	Items      []transactionResponse `json:"items"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	TotalItems int                   `json:"total_items"`
	HasPrev    bool                  `json:"has_prev"`
	HasNext    bool                  `json:"has_next"`
	Links      []pageLinkResponse    `json:"links"`
}

type rangeResponse struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type dashboardResponse struct {
	Range   rangeResponse  `json:"range"`
	Summary summaryResponse `json:"summary"`
	Chart   chartResponse   `json:"chart"`
	Stats   statsResponse   `json:"stats"`
	Page    pageResponse    `json:"page"`
}

func newDashboardResponse(v *services.View) dashboardResponse {
	links := make([]pageLinkResponse, len(v.PageLinks))
	for i, l := range v.PageLinks {
		links[i] = pageLinkResponse{Page: l.Number, Ellipsis: l.Ellipsis}
	}
	return dashboardResponse{
		Range:   rangeResponse{StartDate: v.Range.Start.String(), EndDate: v.Range.End.String()},
		Summary: newSummaryResponse(v.Summary),
		Chart:   newChartResponse(v.Chart),
		Stats:   newStatsResponse(v.Stats),
		Page: pageResponse{
			Items:      newTransactionList(v.Page.Items),
			Page:       v.Page.Number,
			PageSize:   v.Page.Size,
			TotalPages: v.Page.TotalPages,
			TotalItems: v.Page.TotalItems,
			HasPrev:    v.Page.HasPrev(),
			HasNext:    v.Page.HasNext(),
			Links:      links,
		},
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case isRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case core.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text for err. Internal failures are not
// described.
func errorMessage(err error, status int) errorResponse {
	var ve *core.ValidationError
	switch {
	case status == http.StatusServiceUnavailable:
		return errorResponse{Error: "storage temporarily unavailable, please retry"}
	case status == http.StatusInternalServerError:
		return errorResponse{Error: "internal server error"}
	case errors.As(err, &ve):
		return errorResponse{Error: ve.Error(), Field: ve.Field}
	default:
		return errorResponse{Error: err.Error()}
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
		}
	}
	writeJSON(w, status, errorMessage(err, status))
}
