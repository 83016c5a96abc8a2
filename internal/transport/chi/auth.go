package chi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearlot/internal/logger"
)

// Roles carried in merchant and producer tokens.
const (
	RoleMerchant = "merchant"
	RoleProducer = "producer"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// Claims is the JWT payload issued to marketplace users. Subject is the user ID.
type Claims struct {
	Role         string `json:"role"`
	Name         string `json:"name,omitempty"`
	AddressShort string `json:"address_short,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	Subject      string
	Role         string
	Name         string
	AddressShort string
	// Service is set for static API keys: full access, no ownership checks.
	Service bool
}

// IsMerchant reports whether the caller is a merchant user.
func (p Principal) IsMerchant() bool { return !p.Service && p.Role == RoleMerchant }

// CanWrite reports whether the caller may create or modify lots.
// The zero Principal (authentication disabled) can.
func (p Principal) CanWrite() bool {
	return p.Service || p.IsMerchant() || p == Principal{}
}

// IsProducer reports whether the caller is a producer user.
func (p Principal) IsProducer() bool { return !p.Service && p.Role == RoleProducer }

// CanSchedule reports whether the caller may book lot pickups.
// The zero Principal (authentication disabled) can.
func (p Principal) CanSchedule() bool {
	return p.Service || p.IsProducer() || p == Principal{}
}

// MerchantScope returns the merchant ID ownership is checked against, empty for none.
func (p Principal) MerchantScope() string {
	if p.IsMerchant() {
		return p.Subject
	}
	return ""
}

type principalKey struct{}

// ContextWithPrincipal stores the authenticated caller in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the authenticated caller.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthConfig configures BearerAuthMiddleware.
type AuthConfig struct {
	APIKeys   []string
	JWTSecret string
}

// BearerAuthMiddleware returns a middleware that accepts either a static API key
// or an HS256 JWT as the Bearer token. If neither keys nor a secret are configured,
// authentication is disabled (pass-through).
func BearerAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	var validKeys [][]byte
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys = append(validKeys, []byte(k))
		}
	}
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if len(validKeys) == 0 && len(secret) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}
			token := auth[len(bearerPrefix):]

			for _, k := range validKeys {
				if subtle.ConstantTimeCompare(k, []byte(token)) == 1 {
					p := Principal{Subject: "service", Service: true}
					next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
					return
				}
			}

			if len(secret) == 0 {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid api key")
				return
			}
			p, err := parseToken(parser, secret, token)
			if err != nil {
				logger.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

// withPrincipal stores p and tags the request logger with it.
func withPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = logger.With(ctx, zap.String("subject", p.Subject), zap.String("role", p.Role))
	return ContextWithPrincipal(ctx, p)
}

func parseToken(parser *jwt.Parser, secret []byte, raw string) (Principal, error) {
	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	if claims.Role != RoleMerchant && claims.Role != RoleProducer {
		return Principal{}, errors.New("token has unknown role")
	}
	return Principal{
		Subject:      claims.Subject,
		Role:         claims.Role,
		Name:         claims.Name,
		AddressShort: claims.AddressShort,
	}, nil
}
