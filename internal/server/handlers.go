package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/gateway"
	"github.com/xdg/cmdgate/internal/policy"
	"github.com/xdg/cmdgate/internal/tools"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Cause      string `json:"cause,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// faultBody is returned when the child could not run to completion.
type faultBody struct {
	gateway.Response
	Kind      string `json:"kind"`
	Fault     string `json:"fault"`
	RequestID string `json:"request_id,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req gateway.CommandRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.Gateway.Execute(r.Context(), credentialFrom(r), req)
	if err != nil {
		s.writeGatewayError(w, r, err, &resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req tools.Request
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.Gateway.RunTool(r.Context(), credentialFrom(r), r.PathValue("name"), req)
	if err != nil {
		s.writeGatewayError(w, r, err, &resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Gateway.Health())
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Gateway.Capabilities())
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: string(gateway.KindInternal)})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, errorBody{Error: "username and password are required", Kind: string(gateway.KindValidationRejected)})
		return
	}

	tok, p, err := s.Login.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.Metrics.RecordAuthFailure(string(auth.MethodPassword))
		_ = s.Audit.LogLoginFail(req.Username, string(auth.MethodPassword), loginFailReason(err))
		if isCredentialError(err) {
			writeError(w, r, http.StatusUnauthorized, errorBody{Error: "invalid username or password", Kind: string(gateway.KindAuthDenied)})
			return
		}
		clog.Error("auth: login for %q: %v", req.Username, err)
		writeError(w, r, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: string(gateway.KindInternal)})
		return
	}
	_ = s.Audit.LogLogin(p.Subject, string(auth.MethodPassword))
	writeJSON(w, http.StatusOK, tok)
}

func isCredentialError(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredential) ||
		errors.Is(err, auth.ErrAccountLocked) ||
		errors.Is(err, auth.ErrInactiveUser)
}

// loginFailReason is the audit reason; the client always sees the same
// message.
func loginFailReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		return "account locked"
	case errors.Is(err, auth.ErrInactiveUser):
		return "user inactive"
	case errors.Is(err, auth.ErrInvalidCredential):
		return "invalid credentials"
	default:
		return "error"
	}
}

// decode reads a size-capped JSON body into v, rejecting unknown fields and
// trailing data. It writes the error response and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody())
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil && dec.More() {
		err = errors.New("unexpected data after JSON body")
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, errorBody{
			Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			Kind:  string(gateway.KindValidationRejected),
		})
		return false
	}
	msg := "invalid JSON body"
	if errors.Is(err, io.EOF) {
		msg = "request body is required"
	} else {
		msg += ": " + err.Error()
	}
	writeError(w, r, http.StatusBadRequest, errorBody{Error: msg, Kind: string(gateway.KindValidationRejected)})
	return false
}

// StatusFor maps a gateway error to its HTTP status.
func StatusFor(err error) int {
	e, ok := gateway.AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case gateway.KindAuthDenied:
		return http.StatusUnauthorized
	case gateway.KindAdmissionDenied:
		return http.StatusTooManyRequests
	case gateway.KindValidationRejected:
		if errors.Is(err, tools.ErrNotFound) {
			return http.StatusNotFound
		}
		if _, ok := policy.IsRejection(err); ok {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	case gateway.KindExecutionFault:
		if e.Fault == gateway.FaultTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeGatewayError writes the response for a failed gateway call. resp is
// the partial execution result, used for execution faults.
func (s *Server) writeGatewayError(w http.ResponseWriter, r *http.Request, err error, resp *gateway.Response) {
	status := StatusFor(err)
	e, ok := gateway.AsError(err)
	if !ok {
		clog.Error("http: unexpected error: %v", err)
		writeError(w, r, status, errorBody{Error: "internal error", Kind: string(gateway.KindInternal)})
		return
	}

	switch e.Kind {
	case gateway.KindExecutionFault:
		body := faultBody{Kind: string(e.Kind), Fault: string(e.Fault), RequestID: gateway.RequestID(r.Context())}
		if resp != nil {
			body.Response = *resp
		}
		if body.Error == "" {
			body.Error = e.Reason
		}
		writeJSON(w, status, body)
	case gateway.KindAdmissionDenied:
		secs := int(e.RetryAfter / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, r, status, errorBody{Error: e.Reason, Kind: string(e.Kind), Cause: e.Cause, RetryAfter: secs})
	case gateway.KindInternal:
		writeError(w, r, status, errorBody{Error: "internal error", Kind: string(e.Kind)})
	default:
		writeError(w, r, status, errorBody{Error: e.Error(), Kind: string(e.Kind)})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	if body.RequestID == "" {
		body.RequestID = gateway.RequestID(r.Context())
	}
	writeJSON(w, status, body)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
