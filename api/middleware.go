package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/garnizeh/careerprep/internal/auth"
)

type ctxKey string

const (
	ctxUserID        ctxKey = "user_id"
	ctxCorrelationID ctxKey = "correlation_id"

	// HeaderCorrelationID carries the request correlation id in both
	// directions.
	HeaderCorrelationID = "X-Correlation-ID"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// TokenParser verifies a bearer token and returns the user id it carries.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxUserID).(string)
	return id, ok && id != ""
}

// CorrelationIDFromContext returns the id assigned by CorrelationIDMiddleware.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxCorrelationID).(string)
	return id
}

// CorrelationIDMiddleware reuses an incoming X-Correlation-ID or mints one,
// and echoes it on the response.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderCorrelationID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, id)
		ctx := context.WithValue(r.Context(), ctxCorrelationID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("request",
			slog.String("correlation_id", CorrelationIDFromContext(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("latency", time.Since(start)),
		)
	})
}

// CORSMiddleware allows the configured origin; "*" allows any.
func CORSMiddleware(origin string) mux.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+HeaderCorrelationID)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, "+HeaderCorrelationID)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic",
					slog.Any("err", err),
					slog.String("correlation_id", CorrelationIDFromContext(r.Context())),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal server error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively.
func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// authenticate resolves the request's user id. Missing and invalid tokens are
// logged differently but never told apart to the caller.
func authenticate(tokens TokenParser, r *http.Request) (string, error) {
	id, err := tokens.ParseToken(bearerToken(r))
	if err == nil {
		return id, nil
	}
	attrs := []any{
		slog.String("correlation_id", CorrelationIDFromContext(r.Context())),
		slog.String("path", r.URL.Path),
	}
	if errors.Is(err, auth.ErrMissingToken) {
		logger.Info("auth: missing token", attrs...)
	} else {
		logger.Warn("auth: invalid token", append(attrs, slog.Any("err", err))...)
	}
	return "", err
}

// JWTAuthMiddleware rejects requests without a valid bearer token.
func JWTAuthMiddleware(tokens TokenParser) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(tokens, r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Message: "Authentication required"})
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware attaches the user id when a valid token is present
// and never rejects.
func OptionalJWTMiddleware(tokens TokenParser) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearerToken(r) == "" {
				next.ServeHTTP(w, r)
				return
			}
			if id, err := authenticate(tokens, r); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserID, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
