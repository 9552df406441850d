package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/albinfrick/habbit-service/internal/auth"
	authrepo "github.com/albinfrick/habbit-service/internal/auth/repo"
	"github.com/albinfrick/habbit-service/internal/habit"
	habitrepo "github.com/albinfrick/habbit-service/internal/habit/repo"
	"github.com/albinfrick/habbit-service/internal/push"
	pushrepo "github.com/albinfrick/habbit-service/internal/push/repo"
	"github.com/albinfrick/habbit-service/internal/reminder"
	"github.com/albinfrick/habbit-service/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level with the provided
// sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := utilities.NewSnowflakeID()
			w.Header().Set("X-Request-Id", reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets conservative HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps carries everything the routes need.
type Deps struct {
	Logger        *zap.SugaredLogger
	DB            *sqlx.DB
	AuthConfig    auth.Config
	PushTransport push.TransportConfig
}

// RegisterRoutes wires repositories, services and handlers onto a
// standard-library ServeMux and returns the wrapped handler.
func RegisterRoutes(d Deps) http.Handler {
	userRepo := authrepo.NewUserRepo(d.DB)
	habitRepo := habitrepo.NewHabitRepo(d.DB)
	completionRepo := habitrepo.NewCompletionRepo(d.DB)
	subRepo := pushrepo.NewSubscriptionRepo(d.DB)

	sessions := auth.NewService(userRepo, d.AuthConfig)
	habitSvc := habit.NewService(habitRepo, completionRepo)
	pushSvc := push.NewService(subRepo)
	dispatcher := push.NewDispatcher(subRepo, push.NewWebPushTransport(d.PushTransport), d.Logger)
	reminderSvc := reminder.NewService(habitRepo, completionRepo, subRepo, dispatcher, d.Logger)

	authHandler := auth.NewHandler(sessions, d.Logger)
	habitHandler := habit.NewHandler(habitSvc, sessions, d.Logger)
	pushHandler := push.NewHandler(pushSvc, sessions, d.PushTransport.VAPIDPublicKey, d.Logger)
	reminderHandler := reminder.NewHandler(reminderSvc, sessions, d.Logger)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /habbit-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// accounts
	mux.HandleFunc("POST /habbit-api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /habbit-api/auth/login", authHandler.Login)

	// habits + completion ledger
	mux.HandleFunc("GET /habbit-api/habits", habitHandler.List)
	mux.HandleFunc("POST /habbit-api/habits", habitHandler.Create)
	mux.HandleFunc("PUT /habbit-api/habits/{id}", habitHandler.Update)
	mux.HandleFunc("DELETE /habbit-api/habits/{id}", habitHandler.Delete)
	mux.HandleFunc("POST /habbit-api/habits/{id}/complete", habitHandler.Complete)
	mux.HandleFunc("POST /habbit-api/habits/{id}/revert", habitHandler.Revert)
	mux.HandleFunc("POST /habbit-api/habits/{id}/remind", reminderHandler.Remind)

	// push subscriptions
	mux.HandleFunc("GET /habbit-api/push/vapid-public-key", pushHandler.VAPIDPublicKey)
	mux.HandleFunc("POST /habbit-api/push/subscribe", pushHandler.Subscribe)
	mux.HandleFunc("POST /habbit-api/push/unsubscribe", pushHandler.Unsubscribe)

	// reminder triggers
	mux.HandleFunc("POST /habbit-api/reminders/check", reminderHandler.CheckNow)
	mux.HandleFunc("POST /habbit-api/reminders/run", reminderHandler.Run)

	return LoggingMiddleware(d.Logger)(SecurityHeadersMiddleware()(mux))
}
