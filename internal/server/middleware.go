package server

import (
	"context"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/gateway"
)

type contextKey int

const principalKey contextKey = iota

// PrincipalFrom returns the principal attached by requireAuth.
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*auth.Principal)
	return p, ok
}

// clientRequestID bounds what a client may supply as its own request ID.
var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// withRequestID assigns every request an ID, echoes it in X-Request-ID and
// attaches it to the context for audit correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !clientRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(gateway.WithRequestID(r.Context(), id)))
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withObservability logs each request at debug level and records HTTP
// metrics labelled by route pattern.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		d := time.Since(start)
		s.Metrics.RecordHTTPRequest(r.Method, route, status, d)
		clog.Debug("http: %s %s %d %s id=%s", r.Method, r.URL.Path, status, d.Round(time.Millisecond), gateway.RequestID(r.Context()))
	})
}

// withRecover turns a handler panic into a generic 500.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				clog.Error("http: panic serving %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				writeError(w, r, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: string(gateway.KindInternal)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the request credential and attaches the principal.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.Gateway.Authenticate(r.Context(), credentialFrom(r))
		if err != nil {
			s.writeGatewayError(w, r, err, nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// credentialFrom extracts the caller credential. A bearer token in
// Authorization takes precedence over X-API-Key.
func credentialFrom(r *http.Request) auth.Credential {
	var cred auth.Credential
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			cred.Bearer = strings.TrimSpace(value)
		}
	}
	cred.APIKey = r.Header.Get(APIKeyHeader)
	return cred
}
