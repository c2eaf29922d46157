package middleware

import (
	"net/http"

	"github.com/aerae/accelerator/pkg/requestid"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestID takes the id from the X-Request-Id header, falls back to the one chi generated,
// and generates a fresh uuid otherwise. The id is stored in the request context and echoed
// in the response header so clients can quote it when reporting a failed job.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestid.Header)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = requestid.Generate()
		}

		w.Header().Set(requestid.Header, requestID)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), requestID)))
	})
}
