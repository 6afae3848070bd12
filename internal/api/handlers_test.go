package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/analytics/internal/auth"
	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/pipeline"
)

const (
	testSecret = "test-secret"
	testIssuer = "fitness.identity"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func signToken(t *testing.T, scopes ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":    "tester",
		"iss":    testIssuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

type mockRepo struct {
	activity      *domain.Activity
	user          *domain.User
	metrics       *domain.ActivityMetrics
	insights      []domain.ActivityInsight
	records       []domain.UserRecord
	stats         []domain.UserStatsDaily
	activities    []domain.Activity
	nextCursor    *domain.Cursor
	lastSport     string
	lastListLimit int
}

func (m *mockRepo) GetActivity(_ context.Context, id string) (*domain.Activity, error) {
	if m.activity == nil || m.activity.ID != id {
		return nil, nil
	}
	return m.activity, nil
}

func (m *mockRepo) GetUser(context.Context, string) (*domain.User, error) { return m.user, nil }

func (m *mockRepo) ListActivityRecords(context.Context, string) ([]domain.ActivityRecord, error) {
	return nil, nil
}

func (m *mockRepo) ReplaceDerived(context.Context, domain.Activity, domain.ActivityMetrics, []domain.ActivityInsight, []string) error {
	return nil
}

func (m *mockRepo) UpsertUserRecord(context.Context, domain.UserRecord) (bool, error) {
	return false, nil
}

func (m *mockRepo) RecomputeDailyStats(context.Context, string, time.Time, string) error {
	return nil
}

func (m *mockRepo) GetActivityMetrics(context.Context, string) (*domain.ActivityMetrics, error) {
	return m.metrics, nil
}

func (m *mockRepo) ListActivityInsights(context.Context, string) ([]domain.ActivityInsight, error) {
	return m.insights, nil
}

func (m *mockRepo) ListUserRecords(_ context.Context, _ string, sport string) ([]domain.UserRecord, error) {
	m.lastSport = sport
	return m.records, nil
}

func (m *mockRepo) ListDailyStats(context.Context, string, time.Time, time.Time) ([]domain.UserStatsDaily, error) {
	return m.stats, nil
}

func (m *mockRepo) ListActivitiesByUser(_ context.Context, _ string, _ *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	m.lastListLimit = limit
	return m.activities, m.nextCursor, nil
}

func testRouter(repo domain.Repository) http.Handler {
	service := pipeline.NewService(repo)
	handler := NewHandler(service)
	middleware := auth.NewMiddleware(auth.Config{Secret: testSecret, Issuer: testIssuer})
	return handler.Routes(middleware)
}

func doRequest(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthzSkipsAuth(t *testing.T) {
	router := testRouter(&mockRepo{})

	rr := doRequest(router, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	router := testRouter(&mockRepo{})

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/records", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestProcessRequiresProcessScope(t *testing.T) {
	router := testRouter(&mockRepo{})
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodPost, "/v1/activities/act-1/process", token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProcessUnknownActivity(t *testing.T) {
	router := testRouter(&mockRepo{})
	token := signToken(t, auth.ScopeAnalyticsProcess)

	rr := doRequest(router, http.MethodPost, "/v1/activities/ghost/process", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProcessActivityAccepted(t *testing.T) {
	repo := &mockRepo{
		activity: &domain.Activity{
			ID:              "act-1",
			UserID:          "user-1",
			Sport:           "running",
			StartTime:       time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
			DurationSeconds: 1800,
			DistanceMeters:  fp(5000),
			TotalCalories:   ip(450),
		},
		user: &domain.User{ID: "user-1", Timezone: "UTC"},
	}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsProcess)

	rr := doRequest(router, http.MethodPost, "/v1/activities/act-1/process", token)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ProcessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ActivityID != "act-1" || resp.UserID != "user-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetMetricsNotComputed(t *testing.T) {
	router := testRouter(&mockRepo{})
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/activities/act-1/metrics", token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestGetMetricsOmitsAbsentValues(t *testing.T) {
	repo := &mockRepo{metrics: &domain.ActivityMetrics{
		ActivityID:     "act-1",
		HRDriftPercent: fp(4.2),
		ComputedAt:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/activities/act-1/metrics", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if raw["hr_drift_percent"] != 4.2 {
		t.Fatalf("expected hr_drift_percent 4.2, got %v", raw["hr_drift_percent"])
	}
	if _, present := raw["consistency_score"]; present {
		t.Fatal("absent metrics must be omitted, not rendered as zero")
	}
}

func TestListInsights(t *testing.T) {
	repo := &mockRepo{insights: []domain.ActivityInsight{
		{ID: "ins-1", ActivityID: "act-1", Type: domain.InsightWarning, Category: "fatigue", Message: "slowing down"},
	}}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/activities/act-1/insights", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp InsightsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Type != "warning" {
		t.Fatalf("unexpected insights: %+v", resp.Items)
	}
}

func TestListRecordsForwardsSportFilter(t *testing.T) {
	repo := &mockRepo{records: []domain.UserRecord{
		{UserID: "user-1", RecordType: "fastest_5k", Sport: "running", Value: 1450, Unit: "s"},
	}}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/records?sport=running", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.lastSport != "running" {
		t.Fatalf("sport filter not forwarded, got %q", repo.lastSport)
	}
}

func TestListDailyStatsValidatesDates(t *testing.T) {
	router := testRouter(&mockRepo{})
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/stats/daily?from=notadate", token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodGet, "/v1/users/user-1/stats/daily?from=2026-03-10&to=2026-03-01", token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rr.Code)
	}
}

func TestListDailyStats(t *testing.T) {
	repo := &mockRepo{stats: []domain.UserStatsDaily{
		{
			UserID:               "user-1",
			Date:                 time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			TotalActivities:      2,
			TotalDistanceMeters:  15000,
			TotalDurationSeconds: 5400,
			TotalCalories:        900,
			AvgHeartRate:         fp(141.5),
			AvgPaceSecondsPerKm:  fp(375),
		},
	}}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/stats/daily?from=2026-03-01&to=2026-03-31", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp DailyStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Date != "2026-03-14" {
		t.Fatalf("unexpected stats: %+v", resp.Items)
	}
	if resp.Items[0].AvgPaceSecondsPerKm == nil || *resp.Items[0].AvgPaceSecondsPerKm != 375 {
		t.Fatalf("unexpected avg pace: %+v", resp.Items[0].AvgPaceSecondsPerKm)
	}
}

func TestListActivitiesClampsLimit(t *testing.T) {
	started := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	repo := &mockRepo{
		activities: []domain.Activity{{ID: "act-1", UserID: "user-1", Sport: "running", StartTime: started}},
		nextCursor: &domain.Cursor{StartedAt: started, ID: "act-1"},
	}
	router := testRouter(repo)
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/activities?limit=5000", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if repo.lastListLimit != maxPageLimit {
		t.Fatalf("expected limit clamp to %d, got %d", maxPageLimit, repo.lastListLimit)
	}

	var resp ListActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.NextCursor == "" {
		t.Fatal("expected encoded next cursor")
	}
}

func TestListActivitiesRejectsBadCursor(t *testing.T) {
	router := testRouter(&mockRepo{})
	token := signToken(t, auth.ScopeAnalyticsRead)

	rr := doRequest(router, http.MethodGet, "/v1/users/user-1/activities?cursor=%21%21notbase64", token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
