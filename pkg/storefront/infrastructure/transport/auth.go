package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"storefront/pkg/storefront/domain/model"
)

// Authenticator verifies HS256 bearer tokens whose subject is the user id.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

func (a *Authenticator) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	return token, errors.Wrap(err, "failed to sign token")
}

func (a *Authenticator) Identify(r *http.Request) (model.Identity, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return model.Identity{}, model.ErrUnauthorized
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Identity{}, errors.Wrap(model.ErrUnauthorized, err.Error())
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return model.Identity{}, errors.Wrap(model.ErrUnauthorized, "token subject is not a user id")
	}
	return model.Identity{UserID: userID}, nil
}

type privateHandlerFunc func(w http.ResponseWriter, r *http.Request, caller model.Identity)

// private resolves the caller from the bearer token before calling next.
func (h *Handler) private(next privateHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := h.auth.Identify(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, caller)
	})
}
