package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.db == nil {
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := time.Since(s.appMetrics.uptime)

	fmt.Fprintf(w, "# HELP fintrack_uptime_seconds Process uptime\n")
	fmt.Fprintf(w, "# TYPE fintrack_uptime_seconds gauge\n")
	fmt.Fprintf(w, "fintrack_uptime_seconds %.0f\n", uptime.Seconds())

	fmt.Fprintf(w, "# HELP fintrack_http_requests_total Requests served\n")
	fmt.Fprintf(w, "# TYPE fintrack_http_requests_total counter\n")
	fmt.Fprintf(w, "fintrack_http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "fintrack_http_server_errors_total %d\n", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "fintrack_http_last_response_microseconds %d\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP fintrack_rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE fintrack_rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "fintrack_rate_limit_hits_total %d\n", rateLimitMetrics.TotalHits)
	fmt.Fprintf(w, "fintrack_rate_limit_clients %d\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP fintrack_suspicious_requests_total Requests flagged as probes\n")
	fmt.Fprintf(w, "# TYPE fintrack_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "fintrack_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)
	fmt.Fprintf(w, "fintrack_invalid_ip_attempts_total %d\n", securityMetrics.InvalidIPAttempts)
}
