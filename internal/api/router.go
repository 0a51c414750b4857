package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/quantfolio/internal/api/handlers"
	"github.com/wonny/quantfolio/pkg/database"
	"github.com/wonny/quantfolio/pkg/logger"
)

// HealthChecker reports backing-store health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(
	portfolioHandler *handlers.PortfolioHandler,
	rankingHandler *handlers.RankingHandler,
	health HealthChecker,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(health)).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Portfolio endpoints (read-only)
	api.HandleFunc("/portfolio", portfolioHandler.GetSummary).Methods("GET")
	api.HandleFunc("/portfolio/holdings", portfolioHandler.GetHoldings).Methods("GET")
	api.HandleFunc("/portfolio/orders", portfolioHandler.GetOrders).Methods("GET")
	api.HandleFunc("/portfolio/values", portfolioHandler.GetValues).Methods("GET")
	api.HandleFunc("/portfolio/performance", portfolioHandler.GetPerformance).Methods("GET")

	// Ranking endpoints
	api.HandleFunc("/ranking", rankingHandler.GetRanking).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server and database health
func healthCheckHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "quantfolio-api",
		}
		code := http.StatusOK

		if health != nil {
			status, err := health.HealthCheck(r.Context())
			body["database"] = status
			if err != nil {
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
