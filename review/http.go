package review

import (
	"log"
	"net/http"
	"time"
)

// HTTPLogger logs method, path, status and duration of every request.
func HTTPLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(rec, r)
		log.Printf("http: time:%dms %d %s %s", time.Since(start)/time.Millisecond, rec.status, r.Method, r.URL.String())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
