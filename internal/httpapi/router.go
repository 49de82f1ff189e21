// Package httpapi exposes orders, payments and course access over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/checkout"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/entitlement"
	"github.com/nikolayk812/artesano/internal/ordering"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/nikolayk812/artesano/internal/reconcile"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req ordering.NewOrder) (domain.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
}

type CheckoutService interface {
	CreateIntent(ctx context.Context, req checkout.CreateIntentRequest) (checkout.Intent, error)
}

type WebhookAuthenticator interface {
	Authenticate(ctx context.Context, paymentID string, header http.Header) error
}

type PaymentReconciler interface {
	Reconcile(ctx context.Context, paymentID string) (reconcile.Outcome, error)
}

type CourseAccessService interface {
	Verify(ctx context.Context, token string) (entitlement.Verification, error)
	Lesson(ctx context.Context, token string, lessonID uuid.UUID) (domain.Lesson, error)
	UpdateProgress(ctx context.Context, token string, progress int, completed bool) (entitlement.Progress, error)
	CoursesForEmail(ctx context.Context, email string) ([]entitlement.CourseAccess, error)
}

type Services struct {
	Orders     OrderService
	Checkout   CheckoutService
	Webhooks   WebhookAuthenticator
	Reconciler PaymentReconciler
	Courses    CourseAccessService
	Security   port.SecurityRecorder
}

func (s Services) validate() error {
	if s.Orders == nil || s.Checkout == nil || s.Webhooks == nil ||
		s.Reconciler == nil || s.Courses == nil || s.Security == nil {
		return errors.New("nil service")
	}
	return nil
}

// Limit allows Requests per Window for each client IP.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Config struct {
	PreferenceLimit Limit
	WebhookLimit    Limit
	MaxWebhookBytes int64
	TrustedProxies  []string
}

var DefaultConfig = Config{
	PreferenceLimit: Limit{Requests: 5, Window: 15 * time.Minute},
	WebhookLimit:    Limit{Requests: 100, Window: 15 * time.Minute},
	MaxWebhookBytes: 64 << 10,
}

type handler struct {
	svc Services
	cfg Config
	log *slog.Logger
}

func NewRouter(svc Services, cfg Config, log *slog.Logger) (*gin.Engine, error) {
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxWebhookBytes <= 0 {
		cfg.MaxWebhookBytes = DefaultConfig.MaxWebhookBytes
	}
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(requestMeta(), accessLog(log), recovery(log))

	h := &handler{svc: svc, cfg: cfg, log: log}

	preferenceLimiter, err := newIPLimiter("preference", cfg.PreferenceLimit, svc.Security)
	if err != nil {
		return nil, err
	}
	webhookLimiter, err := newIPLimiter("webhook", cfg.WebhookLimit, svc.Security)
	if err != nil {
		return nil, err
	}

	r.GET("/ping", ping)

	api := r.Group("/api")
	{
		orders := api.Group("/ordenes")
		orders.POST("", h.placeOrder)
		orders.GET("/:id", h.getOrder)

		payments := api.Group("/pagos")
		payments.POST("/preferencia", preferenceLimiter.middleware(), h.createPreference)
		payments.POST("/webhook", webhookLimiter.middleware(), h.webhook)

		courses := api.Group("/cursos")
		courses.POST("/acceder", h.accessCourse)
		courses.GET("/leccion", h.lesson)
		courses.PUT("/progreso", h.progress)
		courses.GET("/mis-cursos", h.myCourses)
	}

	return r, nil
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
