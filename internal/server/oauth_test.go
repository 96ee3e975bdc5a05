package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

// tokenServer fakes the provider's token endpoint for the code exchange.
func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestHandler(t *testing.T, state string) *OAuthHandler {
	t.Helper()
	ts := tokenServer(t)
	config := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: ts.URL},
	}
	return NewOAuthHandler(config, state)
}

func TestOAuthCallbackSuccess(t *testing.T) {
	handler := newTestHandler(t, "state-123")

	req := httptest.NewRequest(http.MethodGet, "/callback?state=state-123&code=auth-code", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	result := <-handler.Result()
	if err := result.Error(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token == nil || result.Token.AccessToken != "access" {
		t.Errorf("unexpected token: %+v", result.Token)
	}
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	handler := newTestHandler(t, "expected-state")

	req := httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=auth-code", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	result := <-handler.Result()
	if result.Error() == nil {
		t.Error("expected a state mismatch error")
	}
}

func TestOAuthCallbackDenied(t *testing.T) {
	handler := newTestHandler(t, "state-123")

	req := httptest.NewRequest(http.MethodGet, "/callback?state=state-123&error=access_denied&error_description=user+denied", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	result := <-handler.Result()
	if result.Error() == nil {
		t.Error("expected an authorization error")
	}
}

func TestOAuthCallbackSingleShot(t *testing.T) {
	handler := newTestHandler(t, "state-123")

	first := httptest.NewRequest(http.MethodGet, "/callback?state=state-123&code=auth-code", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on first callback, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/callback?state=state-123&code=other-code", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on replayed callback, got %d", rec.Code)
	}
}
