package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

const DefaultTwilioURL = "https://api.twilio.com"

type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	// From is the sender, e.g. "whatsapp:+14155238886".
	From string
}

// Twilio sends WhatsApp messages through the Twilio Messages API.
type Twilio struct {
	http       *resty.Client
	accountSID string
	from       string
	enabled    bool
}

var _ Messenger = (*Twilio)(nil)

func NewTwilio(cfg TwilioConfig) *Twilio {
	httpClient := resty.New().
		SetBaseURL(lo.CoalesceOrEmpty(cfg.BaseURL, DefaultTwilioURL)).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	return &Twilio{
		http:       httpClient,
		accountSID: cfg.AccountSID,
		from:       cfg.From,
		enabled:    cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.From != "",
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *Twilio) SendWhatsApp(ctx context.Context, to, body string) error {
	if !t.enabled {
		return fmt.Errorf("twilio: %w", ErrChannelDisabled)
	}
	if to == "" {
		return ErrNoRecipient
	}

	path := "/2010-04-01/Accounts/" + url.PathEscape(t.accountSID) + "/Messages.json"

	var apiErr twilioError

	resp, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": t.from,
			"To":   to,
			"Body": body,
		}).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return fmt.Errorf("http.Post[Messages.json]: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("twilio: status %d: code %d: %s",
			resp.StatusCode(), apiErr.Code, lo.CoalesceOrEmpty(apiErr.Message, resp.Status()))
	}

	return nil
}
