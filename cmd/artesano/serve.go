package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/artesano/internal/catalog"
	"github.com/nikolayk812/artesano/internal/checkout"
	"github.com/nikolayk812/artesano/internal/config"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/entitlement"
	"github.com/nikolayk812/artesano/internal/gateway/mercadopago"
	"github.com/nikolayk812/artesano/internal/httpapi"
	"github.com/nikolayk812/artesano/internal/notify"
	"github.com/nikolayk812/artesano/internal/ordering"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/nikolayk812/artesano/internal/pricing"
	"github.com/nikolayk812/artesano/internal/reconcile"
	"github.com/nikolayk812/artesano/internal/security"
	"github.com/nikolayk812/artesano/internal/webhook"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	app, err := wire(cfg, s, log)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := httpapi.NewRouter(app.services, httpapi.Config{
		PreferenceLimit: httpapi.DefaultConfig.PreferenceLimit,
		WebhookLimit:    httpapi.DefaultConfig.WebhookLimit,
		MaxWebhookBytes: httpapi.DefaultConfig.MaxWebhookBytes,
		TrustedProxies:  cfg.TrustedProxies,
	}, log)
	if err != nil {
		return fmt.Errorf("httpapi.NewRouter: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", srv.Addr, "store", cfg.StoreDriver, "catalog", cfg.CatalogSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

type application struct {
	services httpapi.Services
	close    func()
}

func wire(cfg config.Config, s stores, log *slog.Logger) (application, error) {
	recorder := security.NewLogger(s.events, log)

	var durable port.CatalogSource
	if s.catalog != nil {
		durable = s.catalog
	}

	source, err := catalog.Select(catalog.Kind(cfg.CatalogSource), durable)
	if err != nil {
		return application{}, fmt.Errorf("catalog.Select: %w", err)
	}

	tolerance, err := cfg.Tolerance()
	if err != nil {
		return application{}, err
	}

	gateway, err := mercadopago.NewClient(mercadopago.Config{
		BaseURL:     cfg.MP.BaseURL,
		AccessToken: cfg.MP.AccessToken,
		Timeout:     cfg.GatewayTimeout,
		Sandbox:     cfg.MP.Sandbox,
	})
	if err != nil {
		return application{}, fmt.Errorf("mercadopago.NewClient: %w", err)
	}

	orders, err := ordering.NewService(s.orders, cfg.NodeID, domain.ARS, log)
	if err != nil {
		return application{}, fmt.Errorf("ordering.NewService: %w", err)
	}

	verifier, err := pricing.NewVerifier(source, recorder, tolerance, log)
	if err != nil {
		return application{}, fmt.Errorf("pricing.NewVerifier: %w", err)
	}

	intents, err := checkout.NewService(s.orders, s.payments, verifier, gateway, recorder, checkout.Config{
		IntentTTL:       cfg.PaymentIntentTTL,
		MaxInstallments: cfg.MaxInstallments,
		GatewayTimeout:  cfg.GatewayTimeout,
		SuccessURL:      cfg.SuccessURL(),
		FailureURL:      cfg.FailureURL(),
		PendingURL:      cfg.PendingURL(),
		NotificationURL: cfg.NotificationURL(),
	}, log)
	if err != nil {
		return application{}, fmt.Errorf("checkout.NewService: %w", err)
	}

	auth, err := webhook.NewAuthenticator(cfg.MP.WebhookSecret, recorder, log)
	if err != nil {
		return application{}, fmt.Errorf("webhook.NewAuthenticator: %w", err)
	}
	if !auth.Signed() {
		log.Warn("MP_WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}

	provisioner, err := entitlement.NewProvisioner(s.grants, source, recorder, entitlement.Config{
		GrantTTL:  cfg.AccessGrantTTL,
		ClientURL: cfg.ClientURL,
	}, log)
	if err != nil {
		return application{}, fmt.Errorf("entitlement.NewProvisioner: %w", err)
	}

	outbox, closeOutbox, err := newOutbox(cfg, log)
	if err != nil {
		return application{}, err
	}

	reconciler, err := reconcile.NewReconciler(gateway, s.orders, s.payments, provisioner, outbox, recorder, reconcile.Config{
		GatewayTimeout:  cfg.GatewayTimeout,
		AmountTolerance: tolerance,
	}, log)
	if err != nil {
		closeOutbox()
		return application{}, fmt.Errorf("reconcile.NewReconciler: %w", err)
	}

	return application{
		services: httpapi.Services{
			Orders:     orders,
			Checkout:   intents,
			Webhooks:   auth,
			Reconciler: reconciler,
			Courses:    provisioner,
			Security:   recorder,
		},
		close: closeOutbox,
	}, nil
}

func newOutbox(cfg config.Config, log *slog.Logger) (*notify.Outbox, func(), error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return nil, nil, fmt.Errorf("notify.NewRenderer: %w", err)
	}

	channels := notify.Channels{
		Mailer: notify.NewResend(notify.ResendConfig{
			BaseURL: cfg.Resend.BaseURL,
			APIKey:  cfg.Resend.APIKey,
		}),
		Messenger: notify.NewTwilio(notify.TwilioConfig{
			BaseURL:    cfg.Twilio.BaseURL,
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.WhatsAppFrom,
		}),
	}

	closer := func() {}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("notify.NewKafkaPublisher: %w", err)
		}
		channels.Kafka = publisher
		closer = publisher.Close
	}

	outbox := notify.NewOutbox(cfg.NotifyTimeout, log)

	if err := notify.RegisterDefaults(outbox, renderer, channels, notify.Config{
		EmailFrom:        cfg.EmailFrom,
		OperatorEmail:    cfg.AdminEmail,
		OperatorWhatsApp: cfg.AdminWhatsApp,
		ClientURL:        cfg.ClientURL,
	}); err != nil {
		closer()
		return nil, nil, fmt.Errorf("notify.RegisterDefaults: %w", err)
	}

	return outbox, closer, nil
}
