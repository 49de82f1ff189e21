// Package mercadopago is a minimal client for the Mercado Pago checkout and payments API.
package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.mercadopago.com"

const (
	preferencesPath = "/checkout/preferences"
	paymentsPath    = "/v1/payments/"

	// mercado pago expects this exact layout for expiration dates
	dateLayout = "2006-01-02T15:04:05.000-07:00"
)

var _ port.PaymentGateway = (*Client)(nil)

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	// Sandbox selects sandbox_init_point as the redirect url.
	Sandbox bool
}

type Client struct {
	http    *resty.Client
	sandbox bool
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("access token is empty")
	}

	baseURL := lo.CoalesceOrEmpty(cfg.BaseURL, DefaultBaseURL)
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("url.ParseRequestURI: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json")

	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	return &Client{
		http:    httpClient,
		sandbox: cfg.Sandbox,
	}, nil
}

type preferenceItem struct {
	ID         string      `json:"id,omitempty"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type preferencePhone struct {
	Number string `json:"number,omitempty"`
}

type preferencePayer struct {
	Name  string          `json:"name,omitempty"`
	Email string          `json:"email,omitempty"`
	Phone preferencePhone `json:"phone"`
}

type preferenceBody struct {
	Items              []preferenceItem  `json:"items"`
	Payer              preferencePayer   `json:"payer"`
	BackURLs           map[string]string `json:"back_urls"`
	AutoReturn         string            `json:"auto_return"`
	NotificationURL    string            `json:"notification_url"`
	ExternalReference  string            `json:"external_reference"`
	Expires            bool              `json:"expires"`
	ExpirationDateFrom string            `json:"expiration_date_from,omitempty"`
	ExpirationDateTo   string            `json:"expiration_date_to,omitempty"`
	PaymentMethods     struct {
		Installments int `json:"installments,omitempty"`
	} `json:"payment_methods"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type apiError struct {
	Message string `json:"message"`
	Err     string `json:"error"`
	Status  int    `json:"status"`
}

func (c *Client) CreatePreference(ctx context.Context, req domain.PreferenceRequest) (domain.Preference, error) {
	if len(req.Items) == 0 {
		return domain.Preference{}, errors.New("no items in preference")
	}

	body := mapPreferenceRequest(req)

	var (
		result preferenceResponse
		apiErr apiError
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", uuid.NewString()).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(preferencesPath)
	if err != nil {
		return domain.Preference{}, fmt.Errorf("http.Post[%s]: %w", preferencesPath, err)
	}
	if resp.IsError() {
		return domain.Preference{}, statusError(resp, apiErr)
	}

	redirect := result.InitPoint
	if c.sandbox && result.SandboxInitPoint != "" {
		redirect = result.SandboxInitPoint
	}

	if result.ID == "" || redirect == "" {
		return domain.Preference{}, errors.New("preference response has no id or init point")
	}

	return domain.Preference{
		ID:          result.ID,
		RedirectURL: redirect,
		Raw:         resp.Body(),
	}, nil
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	ExternalReference string          `json:"external_reference"`
	PreferenceID      string          `json:"preference_id"`
	DateApproved      *time.Time      `json:"date_approved"`
	Order             struct {
		ID json.Number `json:"id"`
	} `json:"order"`
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (domain.GatewayPayment, error) {
	if paymentID == "" {
		return domain.GatewayPayment{}, errors.New("paymentID is empty")
	}

	var (
		result paymentResponse
		apiErr apiError
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&apiErr).
		Get(paymentsPath + url.PathEscape(paymentID))
	if err != nil {
		return domain.GatewayPayment{}, fmt.Errorf("http.Get[%s]: %w", paymentsPath, err)
	}
	if resp.IsError() {
		return domain.GatewayPayment{}, statusError(resp, apiErr)
	}

	return mapPaymentResponse(result, resp.Body()), nil
}

func mapPreferenceRequest(req domain.PreferenceRequest) preferenceBody {
	currencyID := lo.CoalesceOrEmpty(req.Currency, "ARS")

	body := preferenceBody{
		Items: lo.Map(req.Items, func(item domain.PreferenceItem, _ int) preferenceItem {
			return preferenceItem{
				ID:         item.ID,
				Title:      item.Title,
				Quantity:   item.Quantity,
				UnitPrice:  json.Number(item.UnitPrice.String()),
				CurrencyID: currencyID,
			}
		}),
		Payer: preferencePayer{
			Name:  req.Payer.Name,
			Email: req.Payer.Email,
			Phone: preferencePhone{Number: req.Payer.Phone},
		},
		BackURLs: map[string]string{
			"success": req.BackURLs.Success,
			"failure": req.BackURLs.Failure,
			"pending": req.BackURLs.Pending,
		},
		AutoReturn:        "approved",
		NotificationURL:   req.NotificationURL,
		ExternalReference: req.ExternalReference,
	}

	if !req.ExpiresTo.IsZero() {
		body.Expires = true
		body.ExpirationDateFrom = req.ExpiresFrom.Format(dateLayout)
		body.ExpirationDateTo = req.ExpiresTo.Format(dateLayout)
	}

	body.PaymentMethods.Installments = req.MaxInstallments

	return body
}

func mapPaymentResponse(r paymentResponse, raw []byte) domain.GatewayPayment {
	return domain.GatewayPayment{
		ID:                r.ID.String(),
		Status:            domain.ToPaymentStatus(r.Status),
		Amount:            r.TransactionAmount,
		ExternalReference: r.ExternalReference,
		PreferenceID:      r.PreferenceID,
		MerchantOrderID:   r.Order.ID.String(),
		ApprovedAt:        r.DateApproved,
		Raw:               raw,
	}
}

func statusError(resp *resty.Response, apiErr apiError) error {
	msg := lo.CoalesceOrEmpty(apiErr.Message, apiErr.Err, resp.Status())
	return fmt.Errorf("mercadopago: %s %s: status %d: %s",
		resp.Request.Method, resp.Request.URL, resp.StatusCode(), msg)
}
