package repository_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/port"
	"github.com/nikolayk812/artesano/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type securityEventRepositorySuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	repo      port.SecurityEventRepository
	container testcontainers.Container
}

func TestSecurityEventRepositorySuite(t *testing.T) {
	suite.Run(t, new(securityEventRepositorySuite))
}

func (suite *securityEventRepositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.Require().NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.Require().NoError(err)

	suite.repo, err = repository.NewSecurityEvent(suite.pool)
	suite.Require().NoError(err)
}

func (suite *securityEventRepositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *securityEventRepositorySuite) TestSearchSecurityEvents() {
	now := time.Now().UTC()

	tampering := domain.SecurityEvent{
		Kind:     domain.EventPriceManipulation,
		Severity: domain.SeverityCritical,
		Details:  map[string]any{"order_id": "o-1", "delta": "12.50"},
		Request: domain.RequestMeta{
			IP:        "203.0.113.7",
			UserAgent: "curl/8.0",
			Method:    "POST",
			URL:       "/api/pagos/preferencia",
		},
		CreatedAt: now.Add(-2 * time.Minute),
	}
	badWebhook := domain.SecurityEvent{
		Kind:      domain.EventInvalidWebhook,
		Severity:  domain.SeverityMedium,
		Details:   map[string]any{"reason": "missing signature"},
		CreatedAt: now.Add(-1 * time.Minute),
	}

	for _, e := range []domain.SecurityEvent{tampering, badWebhook} {
		suite.Require().NoError(suite.repo.InsertSecurityEvent(suite.T().Context(), e))
	}

	tests := []struct {
		name       string
		filter     domain.SecurityEventFilter
		wantEvents []domain.SecurityEvent
		wantError  string
	}{
		{
			name:       "empty filter: newest first",
			filter:     domain.SecurityEventFilter{},
			wantEvents: []domain.SecurityEvent{badWebhook, tampering},
		},
		{
			name:       "by kind: 1 found",
			filter:     domain.SecurityEventFilter{Kinds: []domain.SecurityEventKind{domain.EventPriceManipulation}},
			wantEvents: []domain.SecurityEvent{tampering},
		},
		{
			name:   "by severity: not found",
			filter: domain.SecurityEventFilter{Severities: []domain.Severity{domain.SeverityLow}},
		},
		{
			name: "by createdAt after: 1 found",
			filter: domain.SecurityEventFilter{CreatedAt: &domain.TimeRange{
				After: lo.ToPtr(now.Add(-90 * time.Second)),
			}},
			wantEvents: []domain.SecurityEvent{badWebhook},
		},
		{
			name:       "limit: 1 found",
			filter:     domain.SecurityEventFilter{Limit: 1},
			wantEvents: []domain.SecurityEvent{badWebhook},
		},
		{
			name:      "negative limit: error",
			filter:    domain.SecurityEventFilter{Limit: -5},
			wantError: "filter.Validate: limit is negative",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			t := suite.T()

			events, err := suite.repo.SearchSecurityEvents(t.Context(), tt.filter)
			if tt.wantError != "" {
				require.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			opts := cmp.Options{
				cmpopts.IgnoreFields(domain.SecurityEvent{}, "ID"),
				cmpopts.EquateApproxTime(time.Millisecond),
				cmpopts.EquateEmpty(),
			}

			diff := cmp.Diff(tt.wantEvents, events, opts)
			assert.Empty(t, diff)
		})
	}
}
