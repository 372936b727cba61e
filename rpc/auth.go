package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"dustchain/config"
)

const (
	ScopeOracle = "oracle"
	ScopeAdmin  = "admin"

	scopeClaim = "scope"
	clockSkew  = 2 * time.Minute
)

// Claims are the verified bearer token claims of a privileged request.
type Claims struct {
	Subject string
	Scopes  []string
}

func (c *Claims) has(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

func newAuthenticator(cfg config.RPCAuth) *authenticator {
	return &authenticator{
		secret:   []byte(cfg.Secret()),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
	}
}

// authorize verifies the bearer token of r and requires scope.
func (a *authenticator) authorize(r *http.Request, scope string) (*Claims, *RPCError) {
	if a == nil || len(a.secret) == 0 {
		return nil, newError(http.StatusUnauthorized, codeUnauthorized, "RPC authentication not configured", nil)
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, newError(http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims, err := a.parse(token)
	if err != nil {
		return nil, newError(http.StatusUnauthorized, codeUnauthorized, "invalid token", err.Error())
	}
	if !claims.has(scope) {
		return nil, newError(http.StatusForbidden, codeForbidden, "insufficient scope", scope)
	}
	return claims, nil
}

func (a *authenticator) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(clockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name, jwt.SigningMethodHS384.Name, jwt.SigningMethodHS512.Name}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token invalid")
	}
	sub, _ := mapClaims.GetSubject()
	return &Claims{Subject: sub, Scopes: extractScopes(mapClaims)}, nil
}

func extractScopes(claims jwt.MapClaims) []string {
	switch v := claims[scopeClaim].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IssueToken signs an HS256 token for subject carrying scopes. Operators use
// it to mint oracle and admin credentials.
func IssueToken(cfg config.RPCAuth, subject string, scopes []string, ttl time.Duration) (string, error) {
	secret := cfg.Secret()
	if secret == "" {
		return "", errors.New("rpc: auth secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      subject,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		scopeClaim: strings.Join(scopes, " "),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		claims["iss"] = iss
	}
	if aud := strings.TrimSpace(cfg.Audience); aud != "" {
		claims["aud"] = aud
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
