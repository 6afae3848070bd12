package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "fitness.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": []string{ScopeAnalyticsRead, ScopeAnalyticsProcess},
	}
}

func TestParseValidToken(t *testing.T) {
	parsed, err := Parse(signToken(t, validClaims()), testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.True(t, parsed.HasScope(ScopeAnalyticsRead))
	require.True(t, parsed.HasScope(ScopeAnalyticsProcess))
	require.False(t, parsed.HasScope("activities:write"))
}

func TestParseScopesAsSpaceSeparatedString(t *testing.T) {
	claims := validClaims()
	claims["scopes"] = ScopeAnalyticsRead + " " + ScopeAnalyticsProcess

	parsed, err := Parse(signToken(t, claims), testConfig)
	require.NoError(t, err)
	require.True(t, parsed.HasScope(ScopeAnalyticsRead))
}

func TestParseRejectsBadTokens(t *testing.T) {
	_, err := Parse("", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	_, err = Parse("not-a-jwt", testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims := validClaims()
	claims["iss"] = "someone-else"
	_, err = Parse(signToken(t, claims), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims = validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err = Parse(signToken(t, claims), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims = validClaims()
	delete(claims, "sub")
	_, err = Parse(signToken(t, claims), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	middleware := NewMiddleware(testConfig)

	var got *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/records", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rr := httptest.NewRecorder()

	middleware.Wrap(next).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	require.Equal(t, "user-1", got.Subject)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	middleware := NewMiddleware(testConfig)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/records", nil)
	rr := httptest.NewRecorder()

	middleware.Wrap(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareSkipsHealthz(t *testing.T) {
	middleware := NewMiddleware(testConfig)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	middleware.Wrap(next).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
