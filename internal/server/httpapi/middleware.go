package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
)

type ctxKey string

const doctorIDKey ctxKey = "doctorID"

func doctorID(ctx context.Context) string {
	id, _ := ctx.Value(doctorIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// route registers h under pattern and records its latency and status.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(pattern, rec.status, elapsed)
		s.logger.Debug(r.Context(), "http request", "route", pattern, "status", rec.status, "elapsed", elapsed)
	})
}

// authenticated requires a valid bearer access token and puts the doctor id
// into the request context.
func (s *Server) authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeader)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, CodeUnauthorized, "Missing access token.")
			return
		}

		id, err := s.auth.Authenticate(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), doctorIDKey, id)))
	}
}
