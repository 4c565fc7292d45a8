package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/emphub/workforce/internal/app/domain/user"
	"github.com/emphub/workforce/internal/app/storage"
	apperrors "github.com/emphub/workforce/internal/errors"
	"github.com/emphub/workforce/internal/httputil"
	"github.com/emphub/workforce/pkg/logger"
)

// DirectoryLookup resolves a user by email. Satisfied by the directory
// service and the stores.
type DirectoryLookup interface {
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// RequireRole rejects callers whose stored role differs from the required
// one. The directory is consulted on every request: the live record wins
// over the role claim embedded in the token, since roles can change after
// issuance.
func RequireRole(directory DirectoryLookup, role user.Role, log *logger.Logger) mux.MiddlewareFunc {
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := CallerEmail(r.Context())
			if email == "" {
				httputil.Unauthorized(w, "")
				return
			}

			u, err := directory.GetUserByEmail(r.Context(), email)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					httputil.Forbidden(w, "")
					return
				}
				log.WithError(err).WithField("email", email).Error("role lookup failed")
				httputil.WriteError(w, apperrors.Internal("", err))
				return
			}

			if u.Role != role {
				httputil.Forbidden(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelf rejects callers whose token email differs from the identity
// named by the request. The identity is read from the path variable first,
// then from the query parameter of the same name.
func RequireSelf(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerEmail(r.Context())
			if caller == "" {
				httputil.Unauthorized(w, "")
				return
			}

			if !strings.EqualFold(caller, requestIdentity(r, name)) {
				httputil.Forbidden(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRole admits the caller when the request identity is their own
// or when their stored role matches the elevated role.
func RequireSelfOrRole(directory DirectoryLookup, role user.Role, name string, log *logger.Logger) mux.MiddlewareFunc {
	if log == nil {
		log = logger.NewDefault("middleware")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerEmail(r.Context())
			if caller == "" {
				httputil.Unauthorized(w, "")
				return
			}

			if strings.EqualFold(caller, requestIdentity(r, name)) {
				next.ServeHTTP(w, r)
				return
			}

			u, err := directory.GetUserByEmail(r.Context(), caller)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					httputil.Forbidden(w, "")
					return
				}
				log.WithError(err).WithField("email", caller).Error("role lookup failed")
				httputil.WriteError(w, apperrors.Internal("", err))
				return
			}
			if u.Role != role {
				httputil.Forbidden(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestIdentity(r *http.Request, name string) string {
	if value, ok := mux.Vars(r)[name]; ok && value != "" {
		return value
	}
	return r.URL.Query().Get(name)
}
