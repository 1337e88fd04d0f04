package http

import (
	"net/http"

	applog "fintrack/internal/log"
)

// requireAuth rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			UnauthorizedError("Missing bearer token").Write(w)
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			applog.FromContext(r.Context()).DebugContext(r.Context(), "Token rejected", "error", err)
			UnauthorizedError("Invalid or expired token").Write(w)
			return
		}

		ctx := withUserID(r.Context(), claims.UserID)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, claims.UserID)
		next(w, r.WithContext(applog.NewContext(ctx, logger)))
	}
}
