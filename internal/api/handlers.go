// Package api exposes HTTP handlers for the analytics service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/analytics/internal/auth"
	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/persistence"
	"example.com/analytics/internal/pipeline"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	dateLayout       = "2006-01-02"
)

// Handler coordinates HTTP requests with the analytics pipeline.
type Handler struct {
	service *pipeline.Service
}

// NewHandler builds a Handler.
func NewHandler(service *pipeline.Service) *Handler {
	return &Handler{service: service}
}

// Routes builds the service router with authentication applied.
func (h *Handler) Routes(middleware auth.Middleware) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Wrap)

	r.Get("/healthz", healthz)
	r.Post("/v1/activities/{activityID}/process", h.processActivity)
	r.Get("/v1/activities/{activityID}/metrics", h.getMetrics)
	r.Get("/v1/activities/{activityID}/insights", h.listInsights)
	r.Get("/v1/users/{userID}/records", h.listRecords)
	r.Get("/v1/users/{userID}/stats/daily", h.listDailyStats)
	r.Get("/v1/users/{userID}/activities", h.listActivities)

	return r
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) processActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeAnalyticsProcess) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analytics:process required")
		return
	}

	activityID := chi.URLParam(r, "activityID")
	if strings.TrimSpace(activityID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	result, err := h.service.ProcessActivity(r.Context(), activityID)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		if errors.Is(err, domain.ErrAggregationFailed) {
			writeError(w, http.StatusInternalServerError, "aggregation_failed", "metrics stored but daily rollup failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := ProcessResponse{
		ActivityID:   result.ActivityID,
		UserID:       result.UserID,
		SampleCount:  result.SampleCount,
		InsightCount: result.InsightCount,
		NewRecords:   recordTypes(result),
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	activityID := chi.URLParam(r, "activityID")
	metrics, err := h.service.GetMetrics(r.Context(), activityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if metrics == nil {
		writeError(w, http.StatusNotFound, "not_found", "activity has no computed metrics")
		return
	}

	writeJSON(w, http.StatusOK, toMetricsView(*metrics))
}

func (h *Handler) listInsights(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	activityID := chi.URLParam(r, "activityID")
	insights, err := h.service.ListInsights(r.Context(), activityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]InsightView, 0, len(insights))
	for _, ins := range insights {
		items = append(items, toInsightView(ins))
	}
	writeJSON(w, http.StatusOK, InsightsResponse{Items: items})
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	userID := chi.URLParam(r, "userID")
	sport := r.URL.Query().Get("sport")

	userRecords, err := h.service.ListRecords(r.Context(), userID, sport)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]RecordView, 0, len(userRecords))
	for _, rec := range userRecords {
		items = append(items, toRecordView(rec))
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: items})
}

func (h *Handler) listDailyStats(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	userID := chi.URLParam(r, "userID")

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -29)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "validation_failed", "to must not precede from")
		return
	}

	stats, err := h.service.ListDailyStats(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]DailyStatsView, 0, len(stats))
	for _, st := range stats {
		items = append(items, toDailyStatsView(st))
	}
	writeJSON(w, http.StatusOK, DailyStatsResponse{Items: items})
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	if !requireReadScope(w, r) {
		return
	}

	userID := chi.URLParam(r, "userID")

	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > maxPageLimit {
				parsed = maxPageLimit
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.ListActivities(r.Context(), userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, act := range activities {
		items = append(items, toActivityView(act))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func requireReadScope(w http.ResponseWriter, r *http.Request) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasScope(auth.ScopeAnalyticsRead) && !claims.HasScope(auth.ScopeAnalyticsProcess) {
		writeError(w, http.StatusForbidden, "forbidden", "scope analytics:read required")
		return false
	}
	return true
}

func recordTypes(result *pipeline.ProcessResult) []string {
	types := make([]string, 0, len(result.NewRecords))
	for _, rec := range result.NewRecords {
		types = append(types, rec.RecordType)
	}
	return types
}

// ProcessResponse describes the response body for process requests.
type ProcessResponse struct {
	ActivityID   string   `json:"activity_id"`
	UserID       string   `json:"user_id"`
	SampleCount  int      `json:"sample_count"`
	InsightCount int      `json:"insight_count"`
	NewRecords   []string `json:"new_records"`
}

// MetricsView exposes the derived metrics for an activity. Absent metrics
// are omitted rather than rendered as zero.
type MetricsView struct {
	ActivityID              string    `json:"activity_id"`
	HRDriftPercent          *float64  `json:"hr_drift_percent,omitempty"`
	ConsistencyScore        *float64  `json:"consistency_score,omitempty"`
	FatigueIndexPercent     *float64  `json:"fatigue_index_percent,omitempty"`
	AerobicEfficiency       *float64  `json:"aerobic_efficiency,omitempty"`
	CaloriesPerKm           *float64  `json:"calories_per_km,omitempty"`
	Zone1Seconds            *float64  `json:"zone1_seconds,omitempty"`
	Zone2Seconds            *float64  `json:"zone2_seconds,omitempty"`
	Zone3Seconds            *float64  `json:"zone3_seconds,omitempty"`
	Zone4Seconds            *float64  `json:"zone4_seconds,omitempty"`
	Zone5Seconds            *float64  `json:"zone5_seconds,omitempty"`
	Zone1Percent            *float64  `json:"zone1_percent,omitempty"`
	Zone2Percent            *float64  `json:"zone2_percent,omitempty"`
	Zone3Percent            *float64  `json:"zone3_percent,omitempty"`
	Zone4Percent            *float64  `json:"zone4_percent,omitempty"`
	Zone5Percent            *float64  `json:"zone5_percent,omitempty"`
	HRStdDev                *float64  `json:"hr_std_dev,omitempty"`
	SpeedVariability        *float64  `json:"speed_variability,omitempty"`
	CadenceStdDev           *float64  `json:"cadence_std_dev,omitempty"`
	CadenceConsistency      *float64  `json:"cadence_consistency,omitempty"`
	AvgVerticalOscillation  *float64  `json:"avg_vertical_oscillation,omitempty"`
	AvgStanceTime           *float64  `json:"avg_stance_time,omitempty"`
	AvgStepLength           *float64  `json:"avg_step_length,omitempty"`
	TotalSteps              *float64  `json:"total_steps,omitempty"`
	TrainingEffect          *float64  `json:"training_effect,omitempty"`
	AnaerobicTrainingEffect *float64  `json:"anaerobic_training_effect,omitempty"`
	ComputedAt              time.Time `json:"computed_at"`
}

// InsightView exposes one generated insight.
type InsightView struct {
	InsightID  string                 `json:"insight_id"`
	ActivityID string                 `json:"activity_id"`
	Type       string                 `json:"type"`
	Category   string                 `json:"category"`
	Message    string                 `json:"message"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// InsightsResponse packages insight listings.
type InsightsResponse struct {
	Items []InsightView `json:"items"`
}

// RecordView exposes one personal record.
type RecordView struct {
	RecordType string    `json:"record_type"`
	Sport      string    `json:"sport"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ActivityID *string   `json:"activity_id,omitempty"`
	AchievedAt time.Time `json:"achieved_at"`
}

// RecordsResponse packages record listings.
type RecordsResponse struct {
	Items []RecordView `json:"items"`
}

// DailyStatsView exposes one daily rollup.
type DailyStatsView struct {
	Date                 string   `json:"date"`
	TotalActivities      int      `json:"total_activities"`
	TotalDistanceMeters  float64  `json:"total_distance_meters"`
	TotalDurationSeconds float64  `json:"total_duration_seconds"`
	TotalCalories        int      `json:"total_calories"`
	AvgHeartRate         *float64 `json:"avg_heart_rate,omitempty"`
	AvgPaceSecondsPerKm  *float64 `json:"avg_pace_seconds_per_km,omitempty"`
}

// DailyStatsResponse packages daily rollup listings.
type DailyStatsResponse struct {
	Items []DailyStatsView `json:"items"`
}

// ActivityView exposes summary details about an activity.
type ActivityView struct {
	ActivityID      string     `json:"activity_id"`
	UserID          string     `json:"user_id"`
	Name            *string    `json:"name,omitempty"`
	Sport           string     `json:"sport"`
	SubSport        *string    `json:"sub_sport,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	DistanceMeters  *float64   `json:"distance_meters,omitempty"`
	AvgSpeed        *float64   `json:"avg_speed,omitempty"`
	AvgHeartRate    *int       `json:"avg_heart_rate,omitempty"`
	TotalCalories   *int       `json:"total_calories,omitempty"`
	DeviceName      *string    `json:"device_name,omitempty"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toMetricsView(m domain.ActivityMetrics) MetricsView {
	return MetricsView{
		ActivityID:              m.ActivityID,
		HRDriftPercent:          m.HRDriftPercent,
		ConsistencyScore:        m.ConsistencyScore,
		FatigueIndexPercent:     m.FatigueIndexPercent,
		AerobicEfficiency:       m.AerobicEfficiency,
		CaloriesPerKm:           m.CaloriesPerKm,
		Zone1Seconds:            m.Zone1Seconds,
		Zone2Seconds:            m.Zone2Seconds,
		Zone3Seconds:            m.Zone3Seconds,
		Zone4Seconds:            m.Zone4Seconds,
		Zone5Seconds:            m.Zone5Seconds,
		Zone1Percent:            m.Zone1Percent,
		Zone2Percent:            m.Zone2Percent,
		Zone3Percent:            m.Zone3Percent,
		Zone4Percent:            m.Zone4Percent,
		Zone5Percent:            m.Zone5Percent,
		HRStdDev:                m.HRStdDev,
		SpeedVariability:        m.SpeedVariability,
		CadenceStdDev:           m.CadenceStdDev,
		CadenceConsistency:      m.CadenceConsistency,
		AvgVerticalOscillation:  m.AvgVerticalOscillation,
		AvgStanceTime:           m.AvgStanceTime,
		AvgStepLength:           m.AvgStepLength,
		TotalSteps:              m.TotalSteps,
		TrainingEffect:          m.TrainingEffect,
		AnaerobicTrainingEffect: m.AnaerobicTrainingEffect,
		ComputedAt:              m.ComputedAt,
	}
}

func toInsightView(ins domain.ActivityInsight) InsightView {
	return InsightView{
		InsightID:  ins.ID,
		ActivityID: ins.ActivityID,
		Type:       string(ins.Type),
		Category:   ins.Category,
		Message:    ins.Message,
		Payload:    ins.Payload,
		CreatedAt:  ins.CreatedAt,
	}
}

func toRecordView(rec domain.UserRecord) RecordView {
	return RecordView{
		RecordType: rec.RecordType,
		Sport:      rec.Sport,
		Value:      rec.Value,
		Unit:       rec.Unit,
		ActivityID: rec.ActivityID,
		AchievedAt: rec.AchievedAt,
	}
}

func toDailyStatsView(st domain.UserStatsDaily) DailyStatsView {
	return DailyStatsView{
		Date:                 st.Date.Format(dateLayout),
		TotalActivities:      st.TotalActivities,
		TotalDistanceMeters:  st.TotalDistanceMeters,
		TotalDurationSeconds: st.TotalDurationSeconds,
		TotalCalories:        st.TotalCalories,
		AvgHeartRate:         st.AvgHeartRate,
		AvgPaceSecondsPerKm:  st.AvgPaceSecondsPerKm,
	}
}

func toActivityView(act domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:      act.ID,
		UserID:          act.UserID,
		Name:            act.Name,
		Sport:           act.Sport,
		SubSport:        act.SubSport,
		StartTime:       act.StartTime,
		EndTime:         act.EndTime,
		DurationSeconds: act.DurationSeconds,
		DistanceMeters:  act.DistanceMeters,
		AvgSpeed:        act.AvgSpeed,
		AvgHeartRate:    act.AvgHeartRate,
		TotalCalories:   act.TotalCalories,
		DeviceName:      act.DeviceName,
	}
}
