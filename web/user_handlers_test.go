package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chute-service/config"
)

func testServer() *Server {
	return NewServer(&config.Config{Port: "0"}, NewHub(), Services{})
}

func TestRegisterRequiresDefendingTeam(t *testing.T) {
	server := testServer()

	body := `{"name":"Zico","email":"zico@example.com","team_heart_id":"5bb33c7a-8a43-4f3a-9b54-0d3f7a4ab101"}`
	req := httptest.NewRequest("POST", "/api/users", strings.NewReader(body))
	rec := httptest.NewRecorder()

	server.handleRegisterUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when team_defending_id is missing, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "team_defending_id") {
		t.Errorf("Expected error to name team_defending_id, got %s", rec.Body.String())
	}
}

func TestRegisterRejectsInvalidBody(t *testing.T) {
	server := testServer()

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	server.handleRegisterUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}
