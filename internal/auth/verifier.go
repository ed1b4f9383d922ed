package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "notesapi/internal/errors"
)

const bearerScheme = "bearer"

// Identity is the authenticated caller resolved from a token.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	TokenID   string    `json:"-"`
	SessionID string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExtractToken returns the token from an "Authorization: Bearer <token>"
// header. Any other scheme, or no header, yields false.
func ExtractToken(header http.Header) (string, bool) {
	value := strings.TrimSpace(header.Get("Authorization"))
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Verifier resolves bearer tokens to identities.
type Verifier struct {
	jwtService  *JWTService
	revocations TokenStoreInterface
}

// NewVerifier creates a verifier. revocations may be nil to skip the
// revocation lookup entirely.
func NewVerifier(jwtService *JWTService, revocations TokenStoreInterface) *Verifier {
	return &Verifier{jwtService: jwtService, revocations: revocations}
}

// Verify validates the token and returns the identity it carries.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, apperrors.ErrTokenMissing
	}

	claims, err := v.jwtService.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.IsRefresh() {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, apperrors.ErrTokenInvalid
	}

	if v.revocations != nil && claims.ID != "" {
		// a failed lookup counts as not revoked
		if revoked, err := v.revocations.IsRevoked(ctx, claims.ID); err == nil && revoked {
			return nil, apperrors.ErrTokenInvalid
		}
	}

	return &Identity{
		UserID:    userID,
		Username:  claims.Username,
		TokenID:   claims.ID,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
