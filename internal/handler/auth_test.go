package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/email"
	"github.com/blueberryplanner/blueberry/internal/middleware"
)

func newAuthHandler(f *fixture) *AuthHandler {
	return NewAuthHandler(
		f.users, f.families, f.sessions,
		middleware.NewRateLimiter(),
		email.NewClient("", "noreply@test", "http://test"),
		auth.NewTokenIssuer("test-secret"),
		discard(),
	)
}

func TestRegisterCreatesFamilyAndKidPINs(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	body := `{
		"familyName": "The Berrys",
		"timezone": "America/Chicago",
		"name": "Alice",
		"email": "alice@example.com",
		"password": "supersecret",
		"members": [
			{"name": "Bob", "email": "bob@example.com", "password": "alsosecret"},
			{"name": "Charlie", "isChild": true, "age": 8}
		]
	}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ID    string  `json:"id"`
			Email *string `json:"email"`
		} `json:"user"`
		Family struct {
			ID       string `json:"id"`
			Timezone string `json:"timezone"`
		} `json:"family"`
		KidPins map[string]string `json:"kidPins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Family.Timezone != "America/Chicago" {
		t.Errorf("timezone = %q", resp.Family.Timezone)
	}
	pin, ok := resp.KidPins["Charlie"]
	if !ok {
		t.Fatal("expected a generated PIN for Charlie")
	}
	if len(pin) != 4 {
		t.Errorf("pin = %q, want 4 digits", pin)
	}

	// Session cookie set
	cookieSet := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("expected session cookie on register")
	}

	members, err := f.families.ListMembers(resp.Family.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 3 {
		t.Errorf("members = %d, want 3", len(members))
	}
}

func TestRegisterRejectsDuplicateEmails(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	body := `{
		"familyName": "Dupes",
		"name": "Alice",
		"email": "same@example.com",
		"password": "supersecret",
		"members": [{"name": "Bob", "email": "same@example.com", "password": "alsosecret"}]
	}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	body := `{"familyName": "Taken", "name": "X", "email": "guardian@example.com", "password": "supersecret"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	body := `{"familyName": "Short", "name": "X", "email": "x@example.com", "password": "tiny"}`
	req := httptest.NewRequest("POST", "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "guardian@example.com", "password": "password123"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	req := httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "guardian@example.com", "password": "wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestKidLogin(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	// Case-insensitive family and kid names
	req := httptest.NewRequest("POST", "/api/auth/kid-login",
		strings.NewReader(`{"familyName": "handler family", "kidName": "KID", "pin": "1234"}`))
	rec := httptest.NewRecorder()
	h.KidLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ID      string `json:"id"`
			IsChild bool   `json:"isChild"`
		} `json:"user"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.User.ID != f.kid.ID {
		t.Errorf("user = %q, want kid %q", resp.User.ID, f.kid.ID)
	}
	if !resp.User.IsChild {
		t.Error("expected child user")
	}
}

func TestKidLoginUniformError(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	cases := []string{
		`{"familyName": "No Such Family", "kidName": "Kid", "pin": "1234"}`,
		`{"familyName": "Handler Family", "kidName": "Nobody", "pin": "1234"}`,
		`{"familyName": "Handler Family", "kidName": "Kid", "pin": "9999"}`,
	}

	var messages []string
	for _, body := range cases {
		req := httptest.NewRequest("POST", "/api/auth/kid-login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.KidLogin(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d for %s", rec.Code, http.StatusUnauthorized, body)
		}
		var resp map[string]string
		json.Unmarshal(rec.Body.Bytes(), &resp)
		messages = append(messages, resp["error"])
	}

	// Wrong family, wrong name, and wrong PIN must be indistinguishable.
	if messages[0] != messages[1] || messages[1] != messages[2] {
		t.Errorf("error messages differ: %v", messages)
	}
}

func TestKidLoginRateLimited(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	body := `{"familyName": "Handler Family", "kidName": "Kid", "pin": "0000"}`
	var last int
	for i := 0; i < 7; i++ {
		req := httptest.NewRequest("POST", "/api/auth/kid-login", strings.NewReader(body))
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		h.KidLogin(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	token, err := h.tokens.Issue(f.guardian.ID, auth.PurposeVerifyEmail, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/auth/verify-email?token="+token, nil)
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	user, _ := f.users.GetByID(f.guardian.ID)
	if !user.EmailVerified {
		t.Error("expected email_verified after token verification")
	}
}

func TestVerifyEmailBadToken(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	req := httptest.NewRequest("GET", "/api/auth/verify-email?token=garbage", nil)
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	// Setup questions with email+password proof
	setup := `{
		"email": "guardian@example.com", "password": "password123",
		"question1": "First pet?", "answer1": "  Rex ",
		"question2": "Home town?", "answer2": "Springfield"
	}`
	req := httptest.NewRequest("POST", "/api/auth/setup-security-questions", strings.NewReader(setup))
	rec := httptest.NewRecorder()
	h.SetupSecurityQuestions(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("setup status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Verify returns the questions
	req = httptest.NewRequest("POST", "/api/auth/reset-password/verify",
		strings.NewReader(`{"email": "guardian@example.com"}`))
	rec = httptest.NewRecorder()
	h.ResetPasswordVerify(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	var verifyResp struct {
		Found     bool   `json:"found"`
		Question1 string `json:"question1"`
	}
	json.Unmarshal(rec.Body.Bytes(), &verifyResp)
	if !verifyResp.Found || verifyResp.Question1 != "First pet?" {
		t.Fatalf("verify response = %+v", verifyResp)
	}

	// Answers are normalized, so different case and spacing still match
	reset := `{
		"email": "guardian@example.com",
		"answer1": "rex", "answer2": "SPRINGFIELD",
		"newPassword": "brandnewpass"
	}`
	req = httptest.NewRequest("POST", "/api/auth/reset-password", strings.NewReader(reset))
	rec = httptest.NewRecorder()
	h.ResetPassword(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// Old password no longer works, new one does
	req = httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "guardian@example.com", "password": "password123"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("old password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest("POST", "/api/auth/login",
		strings.NewReader(`{"email": "guardian@example.com", "password": "brandnewpass"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("new password status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestResetPasswordWrongAnswers(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	if err := f.users.SetSecurityQuestions(f.guardian.ID, "Q1", "a1", "Q2", "a2"); err != nil {
		t.Fatalf("seed questions: %v", err)
	}

	body := `{"email": "guardian@example.com", "answer1": "wrong", "answer2": "a2", "newPassword": "brandnewpass"}`
	req := httptest.NewRequest("POST", "/api/auth/reset-password", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	h := newAuthHandler(f)

	sess, err := f.sessions.Create(f.guardian.ID, f.family.ID, false, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	ctx := auth.WithAuth(httptest.NewRequest("GET", "/api/auth/me", nil).Context(), auth.AuthContext{
		UserID: f.guardian.ID, FamilyID: f.family.ID, SessionID: sess.ID,
	})
	req := httptest.NewRequest("GET", "/api/auth/me", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/api/auth/logout", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	gone, err := f.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if gone != nil {
		t.Error("session should be deleted after logout")
	}
}
