package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/freebites/internal/application"
)

type authServiceStub struct {
	result       application.AuthenticateResult
	authErr      error
	authParams   application.AuthenticateParams
	revokeErr    error
	revokedToken string
}

func (s *authServiceStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.authParams = params
	if s.authErr != nil {
		return application.AuthenticateResult{}, s.authErr
	}
	return s.result, nil
}

func (s *authServiceStub) RevokeSession(ctx context.Context, token string) error {
	s.revokedToken = token
	return s.revokeErr
}

func decodeErrorResponse(t *testing.T, recorder *httptest.ResponseRecorder) errorResponse {
	t.Helper()

	var body errorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

func TestAuthHandler_CreateSession(t *testing.T) {
	expiresAt := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	t.Run("issues session token via cookie and header", func(t *testing.T) {
		service := &authServiceStub{
			result: application.AuthenticateResult{
				User: application.User{ID: "user-1", Role: application.RoleStudent},
				Session: application.Session{
					Token:     "token-1",
					ExpiresAt: expiresAt,
				},
			},
		}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":" Alice@Campus.EDU ","access_code":"secret"}`))
		recorder := httptest.NewRecorder()

		handler.CreateSession(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
		}
		if service.authParams.Email != "alice@campus.edu" {
			t.Fatalf("expected normalized email, got %q", service.authParams.Email)
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "token-1" {
			t.Fatalf("expected session token header, got %q", got)
		}

		var cookie *http.Cookie
		for _, c := range recorder.Result().Cookies() {
			if c.Name == "session_token" {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("expected session_token cookie")
		}
		if cookie.Value != "token-1" || !cookie.HttpOnly {
			t.Fatalf("unexpected cookie: %#v", cookie)
		}

		var body loginResponse
		if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Token != "token-1" || body.Role != "student" {
			t.Fatalf("unexpected response body: %#v", body)
		}
		if body.ExpiresAt != expiresAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected expiry: %q", body.ExpiresAt)
		}
	})

	t.Run("rejects invalid credentials", func(t *testing.T) {
		service := &authServiceStub{authErr: application.ErrInvalidCredentials}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"alice@campus.edu","access_code":"wrong"}`))
		recorder := httptest.NewRecorder()

		handler.CreateSession(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
		if body := decodeErrorResponse(t, recorder); body.ErrorCode != "AUTH_INVALID_CREDENTIALS" {
			t.Fatalf("unexpected error code: %q", body.ErrorCode)
		}
	})

	t.Run("rejects malformed request bodies", func(t *testing.T) {
		handler := NewAuthHandler(&authServiceStub{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":`))
		recorder := httptest.NewRecorder()

		handler.CreateSession(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("maps store failures to 503", func(t *testing.T) {
		service := &authServiceStub{authErr: application.ErrStoreUnavailable}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"alice@campus.edu","access_code":"secret"}`))
		recorder := httptest.NewRecorder()

		handler.CreateSession(recorder, req)

		if recorder.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", recorder.Code)
		}
		if body := decodeErrorResponse(t, recorder); body.ErrorCode != "STORE_UNAVAILABLE" {
			t.Fatalf("unexpected error code: %q", body.ErrorCode)
		}
	})
}

func TestAuthHandler_DeleteCurrentSession(t *testing.T) {
	t.Run("revokes the presented token", func(t *testing.T) {
		service := &authServiceStub{}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		recorder := httptest.NewRecorder()

		handler.DeleteCurrentSession(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if service.revokedToken != "token-1" {
			t.Fatalf("expected token-1 revoked, got %q", service.revokedToken)
		}

		var cleared *http.Cookie
		for _, c := range recorder.Result().Cookies() {
			if c.Name == "session_token" {
				cleared = c
			}
		}
		if cleared == nil || cleared.Value != "" || cleared.MaxAge != -1 {
			t.Fatalf("expected session cookie cleared, got %#v", cleared)
		}
	})

	t.Run("falls back to the session cookie", func(t *testing.T) {
		service := &authServiceStub{}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
		recorder := httptest.NewRecorder()

		handler.DeleteCurrentSession(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", recorder.Code)
		}
		if service.revokedToken != "cookie-token" {
			t.Fatalf("expected cookie token revoked, got %q", service.revokedToken)
		}
	})

	t.Run("rejects requests without a token", func(t *testing.T) {
		handler := NewAuthHandler(&authServiceStub{}, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		recorder := httptest.NewRecorder()

		handler.DeleteCurrentSession(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
		if body := decodeErrorResponse(t, recorder); body.ErrorCode != "AUTH_SESSION_EXPIRED" {
			t.Fatalf("unexpected error code: %q", body.ErrorCode)
		}
	})

	t.Run("maps unknown tokens to invalid credentials", func(t *testing.T) {
		service := &authServiceStub{revokeErr: application.ErrInvalidCredentials}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer token-unknown")
		recorder := httptest.NewRecorder()

		handler.DeleteCurrentSession(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", recorder.Code)
		}
	})
}
