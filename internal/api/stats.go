package api

import (
	"net/http"
	"time"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/observability"
)

type progressResponse struct {
	Items []ProgressView `json:"items"`
}

func (h *Handler) statsSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	q := r.URL.Query()
	summary, err := h.svc.Stats.Summary(ctx, userID, q.Get("from"), q.Get("to"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (h *Handler) goalsProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	defer cancel()

	start := time.Now()
	records, err := h.svc.Progress.Progress(ctx, userID)
	observability.ObserveProgress(time.Since(start))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := progressResponse{Items: make([]ProgressView, 0, len(records))}
	for _, rec := range records {
		resp.Items = append(resp.Items, ProgressView{
			Goal:          toGoalView(rec.Goal),
			PeriodRange:   RangeView{From: rec.Window.From, To: rec.Window.To},
			ActivityValue: rec.ActivityValue,
			CheckinValue:  rec.CheckinValue,
			CurrentValue:  rec.CurrentValue,
			Percent:       rec.Percent,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func toSummaryView(s *domain.Summary) SummaryView {
	view := SummaryView{
		Range:  RangeView{From: s.Window.From, To: s.Window.To},
		Totals: toTotalsView(s.Totals),
		ByType: make([]TypeCountView, 0, len(s.ByType)),
		Daily:  make([]DailyView, 0, len(s.Daily)),
	}
	for _, tc := range s.ByType {
		view.ByType = append(view.ByType, TypeCountView{ActivityType: string(tc.Kind), Count: tc.Count})
	}
	for _, d := range s.Daily {
		view.Daily = append(view.Daily, DailyView{Date: d.Date, TotalsView: toTotalsView(d.Totals)})
	}
	return view
}
