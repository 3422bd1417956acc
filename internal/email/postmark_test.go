package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendVerification(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://app.example.com", WithAPIURL(server.URL))

	err := client.SendVerification(context.Background(), "alice@example.com", "Alice", "tok-abc")
	if err != nil {
		t.Fatalf("send verification: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q, want %q", received.To, "alice@example.com")
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q, want %q", received.From, "noreply@example.com")
	}
	if received.Subject != "Verify your Blueberry Planner email" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.TextBody, "https://app.example.com/verify-email?token=tok-abc") {
		t.Errorf("TextBody missing verification link: %q", received.TextBody)
	}
}

func TestSendPasswordReset(t *testing.T) {
	var received postmarkEmail

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://app.example.com", WithAPIURL(server.URL))

	err := client.SendPasswordReset(context.Background(), "bob@example.com", "Bob", "tok-xyz")
	if err != nil {
		t.Fatalf("send password reset: %v", err)
	}

	if received.Subject != "Reset your Blueberry Planner password" {
		t.Errorf("Subject = %q", received.Subject)
	}
	if !strings.Contains(received.HtmlBody, "reset-password?token=tok-xyz") {
		t.Errorf("HtmlBody missing reset link: %q", received.HtmlBody)
	}
}

func TestSendNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com", "https://app.example.com")

	err := client.SendVerification(context.Background(), "alice@example.com", "Alice", "tok")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://app.example.com", WithAPIURL(server.URL))

	err := client.SendVerification(context.Background(), "alice@example.com", "Alice", "tok")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if calls != 1 {
		t.Errorf("4xx responses should not be retried, got %d calls", calls)
	}
}

func TestSendServerErrorRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", "noreply@example.com", "https://app.example.com", WithAPIURL(server.URL))

	err := client.SendPasswordReset(context.Background(), "alice@example.com", "Alice", "tok")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@test.com", "https://test.com").Configured() {
		t.Error("expected Configured() = false")
	}
}
