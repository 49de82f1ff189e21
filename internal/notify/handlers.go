package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikolayk812/artesano/internal/domain"
)

type Config struct {
	EmailFrom        string
	OperatorEmail    string
	OperatorWhatsApp string
	ClientURL        string
}

type orderData struct {
	Order    domain.Order
	AdminURL string
}

type courseData struct {
	CustomerName string
	CourseTitle  string
	Link         string
}

// handlerFunc adapts a function to Handler.
type handlerFunc struct {
	name string
	fn   func(ctx context.Context, event domain.Event) error
}

func (h handlerFunc) Name() string { return h.name }

func (h handlerFunc) Handle(ctx context.Context, event domain.Event) error {
	return h.fn(ctx, event)
}

var errUnexpectedEvent = errors.New("unexpected event")

func orderPaid(event domain.Event) (domain.Order, error) {
	e, ok := event.(domain.OrderPaid)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %T", errUnexpectedEvent, event)
	}
	return e.Order, nil
}

func CustomerEmailHandler(mailer Mailer, renderer *Renderer, cfg Config) Handler {
	return handlerFunc{name: "customer_email", fn: func(ctx context.Context, event domain.Event) error {
		order, err := orderPaid(event)
		if err != nil {
			return err
		}

		msg, err := renderer.Render(CustomerConfirmation, orderData{Order: order})
		if err != nil {
			return fmt.Errorf("renderer.Render: %w", err)
		}

		return mailer.SendEmail(ctx, Email{
			From:    cfg.EmailFrom,
			To:      recipients(order.CustomerEmail),
			Subject: msg.Subject,
			HTML:    msg.Body,
		})
	}}
}

func OperatorEmailHandler(mailer Mailer, renderer *Renderer, cfg Config) Handler {
	return handlerFunc{name: "operator_email", fn: func(ctx context.Context, event domain.Event) error {
		order, err := orderPaid(event)
		if err != nil {
			return err
		}

		msg, err := renderer.Render(OperatorAlert, orderData{
			Order:    order,
			AdminURL: strings.TrimRight(cfg.ClientURL, "/") + "/admin.html",
		})
		if err != nil {
			return fmt.Errorf("renderer.Render: %w", err)
		}

		return mailer.SendEmail(ctx, Email{
			From:    cfg.EmailFrom,
			To:      recipients(cfg.OperatorEmail),
			Subject: msg.Subject,
			HTML:    msg.Body,
		})
	}}
}

func CustomerWhatsAppHandler(messenger Messenger, renderer *Renderer) Handler {
	return handlerFunc{name: "customer_whatsapp", fn: func(ctx context.Context, event domain.Event) error {
		order, err := orderPaid(event)
		if err != nil {
			return err
		}

		to, err := WhatsAppNumber(order.CustomerPhone)
		if err != nil {
			return err
		}

		msg, err := renderer.Render(WhatsAppCustomer, orderData{Order: order})
		if err != nil {
			return fmt.Errorf("renderer.Render: %w", err)
		}

		return messenger.SendWhatsApp(ctx, to, msg.Body)
	}}
}

func OperatorWhatsAppHandler(messenger Messenger, renderer *Renderer, cfg Config) Handler {
	return handlerFunc{name: "operator_whatsapp", fn: func(ctx context.Context, event domain.Event) error {
		order, err := orderPaid(event)
		if err != nil {
			return err
		}

		to, err := WhatsAppNumber(cfg.OperatorWhatsApp)
		if err != nil {
			return err
		}

		msg, err := renderer.Render(WhatsAppOperator, orderData{Order: order})
		if err != nil {
			return fmt.Errorf("renderer.Render: %w", err)
		}

		return messenger.SendWhatsApp(ctx, to, msg.Body)
	}}
}

func CourseAccessEmailHandler(mailer Mailer, renderer *Renderer, cfg Config) Handler {
	return handlerFunc{name: "course_access_email", fn: func(ctx context.Context, event domain.Event) error {
		e, ok := event.(domain.CourseAccessIssued)
		if !ok {
			return fmt.Errorf("%w: %T", errUnexpectedEvent, event)
		}

		msg, err := renderer.Render(CourseAccess, courseData{
			CustomerName: e.Order.CustomerName,
			CourseTitle:  e.CourseTitle,
			Link:         e.Link,
		})
		if err != nil {
			return fmt.Errorf("renderer.Render: %w", err)
		}

		return mailer.SendEmail(ctx, Email{
			From:    cfg.EmailFrom,
			To:      recipients(e.Email),
			Subject: msg.Subject,
			HTML:    msg.Body,
		})
	}}
}

// Channels groups the transports the default handlers deliver through.
// A nil Kafka publisher leaves event publication out.
type Channels struct {
	Mailer    Mailer
	Messenger Messenger
	Kafka     *KafkaPublisher
}

// RegisterDefaults subscribes every notification of a paid order to the outbox.
func RegisterDefaults(o *Outbox, renderer *Renderer, ch Channels, cfg Config) error {
	if o == nil || renderer == nil {
		return errors.New("outbox and renderer are required")
	}
	if ch.Mailer == nil || ch.Messenger == nil {
		return errors.New("mailer and messenger are required")
	}

	paid := domain.OrderPaid{}.EventType()
	access := domain.CourseAccessIssued{}.EventType()

	o.Register(CustomerEmailHandler(ch.Mailer, renderer, cfg), paid)
	o.Register(OperatorEmailHandler(ch.Mailer, renderer, cfg), paid)
	o.Register(CustomerWhatsAppHandler(ch.Messenger, renderer), paid)
	o.Register(OperatorWhatsAppHandler(ch.Messenger, renderer, cfg), paid)
	o.Register(CourseAccessEmailHandler(ch.Mailer, renderer, cfg), access)

	if ch.Kafka != nil {
		o.Register(ch.Kafka, paid, access)
	}

	return nil
}

func recipients(addr string) []string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	return []string{addr}
}
