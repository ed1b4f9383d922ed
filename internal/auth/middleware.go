package auth

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	apperrors "notesapi/internal/errors"
)

// IdentityContextKey is where Middleware stores the caller's *Identity.
const IdentityContextKey = "identity"

// Middleware rejects requests without a valid bearer token and stores the
// resolved *Identity on the echo context.
func Middleware(verifier *Verifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:       IdentityContextKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{bearerToken},
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return verifier.Verify(c.Request().Context(), auth)
		},
		ErrorHandler: tokenErrorHandler,
	})
}

// IdentityFrom returns the identity stored by Middleware.
func IdentityFrom(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(IdentityContextKey).(*Identity)
	return identity, ok && identity != nil
}

func bearerToken(c echo.Context) ([]string, error) {
	token, ok := ExtractToken(c.Request().Header)
	if !ok {
		return nil, apperrors.ErrTokenMissing
	}
	return []string{token}, nil
}

func tokenErrorHandler(c echo.Context, err error) error {
	// Anything that is not a parse failure means no usable token was sent.
	cause := apperrors.ErrTokenMissing
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		cause = apperrors.ErrTokenExpired
	case errors.Is(err, apperrors.ErrTokenInvalid):
		cause = apperrors.ErrTokenInvalid
	}
	httpErr := apperrors.MapErrorToHTTP(cause)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
