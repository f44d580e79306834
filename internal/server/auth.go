package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "portaria"

type AuthConfig struct {
	JWTSecret string
	// AllowLegacyActorHeader trusts X-Actor-Id without a token. Local use only.
	AllowLegacyActorHeader bool
	Logger                 *slog.Logger
}

// Principal is the authenticated caller. Its ActorID is recorded on events.
type Principal struct {
	ActorID string
	Source  string
}

type ctxPrincipal struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal{}).(Principal)
	return p, ok
}

func actorIDFromContext(ctx context.Context) (string, huma.StatusError) {
	p, _ := principalFromContext(ctx)
	if p.ActorID == "" {
		return "", errUnauthenticated()
	}
	return p.ActorID, nil
}

func errUnauthenticated() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

func errBadCredentials() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
}

// SignToken mints an HS256 token whose subject is actorID.
func SignToken(secret, actorID string, ttl time.Duration) (string, error) {
	switch {
	case strings.TrimSpace(secret) == "":
		return "", errors.New("jwt secret not configured")
	case strings.TrimSpace(actorID) == "":
		return "", errors.New("actor id required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	issued := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   actorID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}).SignedString([]byte(secret))
}

type authenticator struct {
	cfg    AuthConfig
	public map[string]bool
	log    *slog.Logger
}

func newAuthenticator(basePath string, cfg AuthConfig) authenticator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	public := make(map[string]bool)
	for _, p := range []string{"health", "openapi.json", "auth/dev/login"} {
		public[path.Join(basePath, p)] = true
	}
	return authenticator{cfg: cfg, public: public, log: log}
}

// parseToken verifies an HS256 token and returns its subject as the actor.
func (a authenticator) parseToken(raw string) (Principal, error) {
	if strings.TrimSpace(a.cfg.JWTSecret) == "" {
		return Principal{}, errors.New("jwt secret not configured")
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, err
	}
	if claims.Subject == "" {
		return Principal{}, errors.New("token has no subject")
	}
	return Principal{ActorID: claims.Subject, Source: "jwt"}, nil
}

// resolve picks the caller from the request. A present Authorization header
// always wins over X-Actor-Id.
func (a authenticator) resolve(req *http.Request) (Principal, huma.StatusError) {
	if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			return Principal{}, errBadCredentials()
		}
		p, err := a.parseToken(token)
		if err != nil {
			a.log.Debug("rejected bearer token", slog.Any("error", err))
			return Principal{}, errBadCredentials()
		}
		return p, nil
	}
	if actor := strings.TrimSpace(req.Header.Get("X-Actor-Id")); actor != "" && a.cfg.AllowLegacyActorHeader {
		a.log.Warn("accepted unauthenticated X-Actor-Id", slog.String("actor_id", actor))
		return Principal{ActorID: actor, Source: "legacy_header"}, nil
	}
	return Principal{}, errUnauthenticated()
}

func (a authenticator) middleware(basePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			outside := basePath != "" && !strings.HasPrefix(req.URL.Path, basePath)
			if outside || a.public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}
			p, authErr := a.resolve(req)
			if authErr != nil {
				respondStatusError(w, authErr)
				return
			}
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), p)))
		})
	}
}

func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	return newAuthenticator(basePath, cfg).middleware(basePath)
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
