package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hisabkitab/backend/internal/logging"
)

func TestResendSendsAttachmentsAsBase64(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	m := NewResend(srv.Client(), "re_key", "reports@example.com").WithEndpoint(srv.URL)
	err := m.Send(context.Background(), Message{
		To:          []string{"owner@example.com"},
		Subject:     "Daily report",
		HTML:        "<p>attached</p>",
		Attachments: []Attachment{{Filename: "r.xlsx", Content: []byte("xlsx-bytes")}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer re_key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got.From != "reports@example.com" || len(got.Attachments) != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
	decoded, _ := base64.StdEncoding.DecodeString(got.Attachments[0].Content)
	if string(decoded) != "xlsx-bytes" {
		t.Fatalf("attachment not base64 encoded: %q", got.Attachments[0].Content)
	}
}

func TestResendReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	m := NewResend(srv.Client(), "re_key", "bad").WithEndpoint(srv.URL)
	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x"})
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestResendRequiresKeyAndRecipient(t *testing.T) {
	if err := NewResend(nil, "", "x").Send(context.Background(), Message{To: []string{"a@example.com"}}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if err := NewResend(nil, "k", "x").Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected missing recipient error")
	}
}

func TestNoopDrops(t *testing.T) {
	if err := (Noop{Logger: logging.Discard()}).Send(context.Background(), Message{To: []string{"a@example.com"}}); err != nil {
		t.Fatalf("noop send: %v", err)
	}
}
