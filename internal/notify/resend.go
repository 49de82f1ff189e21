package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

const DefaultResendURL = "https://api.resend.com"

type ResendConfig struct {
	BaseURL string
	APIKey  string
}

// Resend sends email through the Resend HTTP API.
type Resend struct {
	http    *resty.Client
	enabled bool
}

var _ Mailer = (*Resend)(nil)

func NewResend(cfg ResendConfig) *Resend {
	httpClient := resty.New().
		SetBaseURL(lo.CoalesceOrEmpty(cfg.BaseURL, DefaultResendURL)).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Resend{
		http:    httpClient,
		enabled: cfg.APIKey != "",
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (r *Resend) SendEmail(ctx context.Context, email Email) error {
	if !r.enabled {
		return fmt.Errorf("resend: %w", ErrChannelDisabled)
	}
	if len(email.To) == 0 {
		return ErrNoRecipient
	}
	if email.From == "" {
		return errors.New("email.From is empty")
	}

	var apiErr resendError

	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(resendEmail(email)).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("http.Post[/emails]: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode(), lo.CoalesceOrEmpty(apiErr.Message, resp.Status()))
	}

	return nil
}
