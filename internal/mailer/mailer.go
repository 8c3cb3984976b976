// Package mailer delivers report emails.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultResendURL = "https://api.resend.com/emails"

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Noop drops every message after logging it.
type Noop struct {
	Logger logrus.FieldLogger
}

func (n Noop) Send(_ context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.WithFields(logrus.Fields{
			"to":          strings.Join(msg.To, ","),
			"subject":     msg.Subject,
			"attachments": len(msg.Attachments),
		}).Info("mailer not configured, message dropped")
	}
	return nil
}

// Resend sends through the Resend HTTP API.
type Resend struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
}

func NewResend(httpClient *http.Client, apiKey string, from string) *Resend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resend{
		httpClient: httpClient,
		endpoint:   defaultResendURL,
		apiKey:     strings.TrimSpace(apiKey),
		from:       from,
	}
}

// WithEndpoint points the client at another base URL.
func (r *Resend) WithEndpoint(endpoint string) *Resend {
	r.endpoint = endpoint
	return r
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if r.apiKey == "" {
		return errors.New("resend api key not configured")
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}

	from := msg.From
	if from == "" {
		from = r.from
	}
	body := resendRequest{From: from, To: msg.To, Subject: msg.Subject, HTML: msg.HTML}
	for _, a := range msg.Attachments {
		body.Attachments = append(body.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("resend: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}
