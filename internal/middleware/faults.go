package middleware

import (
	"net/http"
	"sync/atomic"
)

// Faults makes the next n write requests fail with 503
type Faults struct {
	remaining atomic.Int64
}

// FailNext arms the next n writes to fail
func (f *Faults) FailNext(n int) {
	f.remaining.Store(int64(n))
}

// Remaining returns how many writes are still armed to fail
func (f *Faults) Remaining() int {
	return int(f.remaining.Load())
}

func (f *Faults) take() bool {
	for {
		n := f.remaining.Load()
		if n <= 0 {
			return false
		}
		if f.remaining.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Inject fails POST, PUT, PATCH and DELETE requests while faults are armed
func (f *Faults) Inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if f.take() {
				respondWithError(w, http.StatusServiceUnavailable, "injected failure")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
