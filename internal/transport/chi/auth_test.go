package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(t *testing.T, h http.Handler, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, http.NoBody)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_EmptyKeys_PassThrough(t *testing.T) {
	handler := BearerAuthMiddleware(nil)(okHandler())

	if rr := serve(t, handler, "/records", ""); rr.Code != http.StatusOK {
		t.Errorf("empty keys: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_EmptyStringKeys_PassThrough(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"", ""})(okHandler())

	if rr := serve(t, handler, "/records", ""); rr.Code != http.StatusOK {
		t.Errorf("empty string keys: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	rr := serve(t, handler, "/records", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != CodeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, CodeUnauthorized)
	}
}

func TestAuthMiddleware_BasicScheme_401(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	if rr := serve(t, handler, "/records", "Basic dXNlcjpwYXNz"); rr.Code != http.StatusUnauthorized {
		t.Errorf("basic scheme: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken_401(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	if rr := serve(t, handler, "/records", "Bearer wrong-key"); rr.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_MultipleKeys(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"key1", "key2"})(okHandler())

	for _, key := range []string{"key1", "key2"} {
		if rr := serve(t, handler, "/records", "Bearer "+key); rr.Code != http.StatusOK {
			t.Errorf("key %s: got %d, want %d", key, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	handler := BearerAuthMiddleware([]string{"secret"})(okHandler())

	for _, path := range []string{"/healthz", "/metrics"} {
		if rr := serve(t, handler, path, ""); rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
	if rr := serve(t, handler, "/healthz/details", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("/healthz/details must require auth, got %d", rr.Code)
	}
}
