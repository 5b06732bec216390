package integration

import (
	"net/http"
	"testing"
)

func TestAccountLifecycleRegisterActivateLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Lena@Example.com", "lena", "Valid#Pass1234")

	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"identity": "lena", "password": "Valid#Pass1234"}, "")
	if resp.StatusCode != http.StatusForbidden || env.code() != "ACCOUNT_NOT_ACTIVATED" {
		t.Fatalf("expected not activated, got status=%d code=%s", resp.StatusCode, env.code())
	}

	token := s.notifier.activationToken("lena@example.com")
	if token == "" {
		t.Fatal("expected activation token for normalized email")
	}
	resp, env = s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": "lena@example.com", "token": "0000"}, "")
	if resp.StatusCode != http.StatusBadRequest || env.code() != "INVALID_TOKEN" {
		t.Fatalf("expected invalid token, got status=%d code=%s", resp.StatusCode, env.code())
	}
	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": "lena@example.com", "token": token}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate: status=%d", resp.StatusCode)
	}
	resp, env = s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": "lena@example.com", "token": token}, "")
	if resp.StatusCode != http.StatusBadRequest || env.code() != "INVALID_TOKEN" {
		t.Fatalf("expected consumed token rejected, got status=%d code=%s", resp.StatusCode, env.code())
	}

	for _, identity := range []string{"lena", "LENA@example.com"} {
		access := s.login(t, identity, "Valid#Pass1234")
		resp, env = s.do(t, http.MethodGet, "/api/v1/account", nil, access)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("account: status=%d", resp.StatusCode)
		}
		account := decode[struct {
			Email    string   `json:"email"`
			Username string   `json:"username"`
			Active   bool     `json:"active"`
			Roles    []string `json:"roles"`
		}](t, env.Data)
		if account.Email != "lena@example.com" || account.Username != "lena" || !account.Active || len(account.Roles) != 1 || account.Roles[0] != "user" {
			t.Fatalf("unexpected account %+v", account)
		}
	}
}

func TestAccountLifecycleRegisterConflictsAndWeakPasswords(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "mia@example.com", "mia", "Valid#Pass1234")

	cases := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"duplicate email", map[string]string{"email": "MIA@example.com", "username": "mia2", "password": "Valid#Pass1234"}, http.StatusConflict, "CONFLICT"},
		{"duplicate username", map[string]string{"email": "mia2@example.com", "username": "mia", "password": "Valid#Pass1234"}, http.StatusConflict, "CONFLICT"},
		{"short password", map[string]string{"email": "nia@example.com", "username": "nia", "password": "short"}, http.StatusBadRequest, "WEAK_PASSWORD"},
		{"password equals username", map[string]string{"email": "oli@example.com", "username": "oliver123", "password": "oliver123"}, http.StatusBadRequest, "WEAK_PASSWORD"},
		{"bad email", map[string]string{"email": "not-an-email", "username": "pia", "password": "Valid#Pass1234"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad username", map[string]string{"email": "qia@example.com", "username": "q", "password": "Valid#Pass1234"}, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", tc.body, "")
			if resp.StatusCode != tc.status || env.code() != tc.code {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.code, resp.StatusCode, env.code())
			}
		})
	}
}

func TestAccountLifecycleResendActivationIsUniform(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ray@example.com", "ray", "Valid#Pass1234")
	first := s.notifier.activationToken("ray@example.com")

	for _, email := range []string{"ray@example.com", "ghost@example.com"} {
		resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/activate/resend", map[string]string{"email": email}, "")
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("resend %s: expected 202, got %d", email, resp.StatusCode)
		}
	}
	second := s.notifier.activationToken("ray@example.com")
	if second == "" || second == first {
		t.Fatalf("expected a fresh activation token, got %q", second)
	}
	resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": "ray@example.com", "token": first}, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected superseded token rejected, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": "ray@example.com", "token": second}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected latest token accepted, got %d", resp.StatusCode)
	}
}

func TestAccountLifecycleUpdateAccountAndProfile(t *testing.T) {
	s := newTestServer(t)
	s.registerActive(t, "sia@example.com", "sia", "Valid#Pass1234")
	access := s.login(t, "sia", "Valid#Pass1234")

	resp, env := s.do(t, http.MethodGet, "/api/v1/members/sia", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: status=%d", resp.StatusCode)
	}

	resp, env = s.do(t, http.MethodPost, "/api/v1/account", map[string]any{"name": "Sia Moon", "location": "Lisbon", "country": "pt"}, access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status=%d code=%s", resp.StatusCode, env.code())
	}

	resp, env = s.do(t, http.MethodGet, "/api/v1/members/sia", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile after update: status=%d", resp.StatusCode)
	}
	profile := decode[map[string]any](t, env.Data)
	if profile["name"] != "Sia Moon" || profile["location"] != "Lisbon, Portugal" {
		t.Fatalf("expected refreshed profile, got %+v", profile)
	}
	if _, leaked := profile["email"]; leaked {
		t.Fatalf("public profile must not expose email: %+v", profile)
	}

	resp, env = s.do(t, http.MethodGet, "/api/v1/members/sia/settings", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected unknown section 404, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/v1/account", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}
