package notify

import (
	"context"
	"errors"
)

// ErrChannelDisabled is returned by channels that are not configured.
var ErrChannelDisabled = errors.New("channel disabled")

type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

type Messenger interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}
