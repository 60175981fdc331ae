package authmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/zanzhit/snapshot_recorder/internal/lib/api/response"
	jwtlib "github.com/zanzhit/snapshot_recorder/internal/lib/jwt"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearer(r)
			if tokenString == "" {
				unauthorized(w, r)
				return
			}

			user, err := jwtlib.Subject(tokenString, secret)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearer reads the token from the Authorization header, falling back to the
// token query parameter for websocket clients that cannot set headers.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return ""
		}

		return token
	}

	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error("unauthorized", ""))
}

func User(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(UserContextKey).(string)

	return user, ok
}
