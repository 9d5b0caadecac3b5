// Package testhelpers provides a configurable mock SAS signing service for
// tests.
package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockSASServer is a mock of the remote SAS token endpoint. Response values
// and failure behavior are configurable, and requests are counted so tests
// can assert on cache behavior.
type MockSASServer struct {
	Server *httptest.Server

	mu                  sync.Mutex
	Token               string    // token to return
	Expiry              time.Time // expiry to return
	StatusCode          int       // HTTP status to return (200 if not set)
	FailuresBeforeOK    int       // number of 503s to serve before succeeding
	RequestCount        int       // total requests received
	LastSubscriptionKey string    // captured Ocp-Apim-Subscription-Key header
}

// SetupMockSASServer creates a mock signing service that answers
// GET /{account}/{container} with a token document.
func SetupMockSASServer(t *testing.T) *MockSASServer {
	t.Helper()

	mock := &MockSASServer{
		Token:      "st=2026-01-01&se=2026-01-02&sp=rl&sig=mock-signature",
		Expiry:     time.Now().Add(1 * time.Hour).UTC(),
		StatusCode: http.StatusOK,
	}

	router := http.NewServeMux()

	router.HandleFunc("GET /{account}/{container}", func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		defer mock.mu.Unlock()

		mock.RequestCount++
		mock.LastSubscriptionKey = r.Header.Get("Ocp-Apim-Subscription-Key")

		if mock.FailuresBeforeOK > 0 {
			mock.FailuresBeforeOK--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if mock.StatusCode != http.StatusOK {
			w.WriteHeader(mock.StatusCode)
			return
		}

		WriteJSON(w, map[string]any{
			"token":       mock.Token,
			"msft:expiry": mock.Expiry.Format(time.RFC3339),
		})
	})

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Server.Close)

	return mock
}

// Requests returns the number of token requests received so far.
func (m *MockSASServer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// SetExpiry replaces the expiry returned for subsequent requests.
func (m *MockSASServer) SetExpiry(expiry time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expiry = expiry
}

// SetToken replaces the token returned for subsequent requests.
func (m *MockSASServer) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Token = token
}

// SetStatusCode replaces the status code returned for subsequent requests.
func (m *MockSASServer) SetStatusCode(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCode = code
}

// WriteJSON writes a JSON response with the appropriate content type.
func WriteJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal JSON: %v", err), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
