package httputil_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medflow/medflow-timesheet/pkg/actor"
	"github.com/medflow/medflow-timesheet/pkg/config"
	"github.com/medflow/medflow-timesheet/pkg/httputil"
	"github.com/medflow/medflow-timesheet/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jwtCfg = &config.JWTConfig{Secret: "test-secret", Issuer: "medflow"}

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := httputil.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "medflow",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: "jane@clinic.test",
		Role:  "employee",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// echoActor writes the resolved actor back as JSON
func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, actor.FromContext(r.Context()))
	})
}

func serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *actor.Actor) {
	t.Helper()
	rec := httptest.NewRecorder()
	httputil.Identity(jwtCfg, logger.Nop())(echoActor()).ServeHTTP(rec, req)

	var body struct {
		Data *actor.Actor `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body.Data
}

func TestIdentity_GatewayHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timesheet/report", nil)
	req.Header.Set("X-User-ID", "user-7")
	req.Header.Set("X-User-Email", "max@clinic.test")
	req.Header.Set("X-User-Role", "admin")

	rec, a := serve(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, a)
	assert.Equal(t, "user-7", a.ID)
	assert.Equal(t, "admin", a.RoleName)
}

func TestIdentity_BearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/timesheet/report", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", time.Now().Add(time.Hour)))

	rec, a := serve(t, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, a)
	assert.Equal(t, "user-42", a.ID)
	assert.Equal(t, "jane@clinic.test", a.Email)
}

func TestIdentity_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"bad signature", "Bearer " + signToken(t, "other-secret", time.Now().Add(time.Hour)), "TOKEN_INVALID"},
		{"expired", "Bearer " + signToken(t, "test-secret", time.Now().Add(-time.Hour)), "TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/timesheet/report", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			httputil.Identity(jwtCfg, logger.Nop())(echoActor()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var resp httputil.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestIdentity_HealthBypass(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	httputil.Identity(jwtCfg, logger.Nop())(echoActor()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
