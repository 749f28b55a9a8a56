package identity

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "candidate_jwt"

// Middleware verifies the HS256 token from the Authorization header (or the
// legacy cookie the web UI sets) and stores the Principal on the request
// context. Token issuance lives in the external credential service; this side
// only verifies.
func Middleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				if c, err := r.Cookie(CookieName); err == nil {
					raw = c.Value
				}
			}
			if raw == "" {
				unauthorized(w)
				return
			}

			claims := jwt.MapClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !tok.Valid {
				unauthorized(w)
				return
			}

			p := Principal{}
			if sub, ok := claims["sub"].(string); ok {
				p.Username = sub
			}
			if cid, ok := claims["cid"].(string); ok {
				p.ID = cid
			}
			if adm, ok := claims["adm"].(bool); ok {
				p.Admin = adm
			}
			if p.ID == "" && p.Username == "" {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"Unauthorized"}`))
}
