package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims carries the staff identity issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	StaffID string   `json:"staff_id"`
	Name    string   `json:"name"`
	Roles   []string `json:"roles"`
}

// Actor resolves the staff id from staff_id, falling back to a numeric sub.
func (c *Claims) Actor() Actor {
	raw := c.StaffID
	if raw == "" {
		raw = c.Subject
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	return Actor{ID: id, Name: c.Name}
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 verification instead of JWKS.
	SigningKey []byte
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	keyfunc := func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	methods := []string{"HS256"}
	if len(cfg.SigningKey) == 0 {
		url := cfg.JWKSURL
		if url == "" && cfg.Issuer != "" {
			if discovered, err := DiscoverJWKSURL(cfg.Issuer); err == nil {
				url = discovered
			}
		}
		keyfunc = NewJWKSCache(url, defaultJWKSCacheTTL).Keyfunc
		methods = []string{"RS256"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, herr := requestToken(c.Request())
			if herr != nil {
				return herr
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, keyfunc, opts...)
			if err != nil || !parsed.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := WithActor(c.Request().Context(), claims.Actor(), claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// TokenQueryParam carries the bearer token on websocket upgrades, since
// browsers cannot set headers on them. Other requests must use the
// Authorization header.
const TokenQueryParam = "access_token"

func requestToken(r *http.Request) (string, *echo.HTTPError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if isWebSocketUpgrade(r) {
			if token := r.URL.Query().Get(TokenQueryParam); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return token, nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// DevActor is the identity every request gets in development mode.
var DevActor = Actor{ID: 1, Name: "Dev User"}

// DevAuthMiddleware lets unauthenticated requests through as DevActor with
// the admin role.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithActor(c.Request().Context(), DevActor, []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
