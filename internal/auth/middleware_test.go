package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "notesapi/internal/errors"
)

func newProtectedServer(jwtService *JWTService) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, identity)
	}, Middleware(NewVerifier(jwtService, nil)))
	return e
}

func TestMiddleware(t *testing.T) {
	jwtService := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	valid, err := jwtService.GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)
	expired, err := jwtService.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)
	forged, err := NewJWTService("forged", time.Hour).GenerateAccessToken(userID, "kcmaxwell")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer " + valid.Token, http.StatusOK, ""},
		{"no header", "", http.StatusUnauthorized, "TOKEN_MISSING"},
		{"wrong scheme", "Basic " + valid.Token, http.StatusUnauthorized, "TOKEN_MISSING"},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"forged", "Bearer " + forged.Token, http.StatusUnauthorized, "TOKEN_INVALID"},
	}

	e := newProtectedServer(jwtService)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				var identity Identity
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
				assert.Equal(t, userID, identity.UserID)
				assert.Equal(t, "kcmaxwell", identity.Username)
				return
			}
			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}
