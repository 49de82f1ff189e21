package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/nikolayk812/artesano/internal/security"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func securityEventsCmd(load loader) *cobra.Command {
	var (
		kinds      []string
		severities []string
		since      time.Duration
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "security-events",
		Short: "List recorded security events, newest first, as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := buildFilter(kinds, severities, since, limit, time.Now().UTC())
			if err != nil {
				return err
			}

			cfg, log, err := load()
			if err != nil {
				return err
			}

			s, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			events, err := security.NewLogger(s.events, log).Recent(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("Recent: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return fmt.Errorf("enc.Encode: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "filter by event kind (repeatable)")
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "filter by severity (repeatable)")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this, e.g. 24h")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of events")

	return cmd
}

func buildFilter(kinds, severities []string, since time.Duration, limit int, now time.Time) (domain.SecurityEventFilter, error) {
	filter := domain.SecurityEventFilter{Limit: limit}

	for _, k := range lo.Uniq(kinds) {
		kind, err := domain.ToSecurityEventKind(k)
		if err != nil {
			return filter, fmt.Errorf("--kind %q: %w", k, err)
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	for _, s := range lo.Uniq(severities) {
		severity, err := domain.ToSeverity(s)
		if err != nil {
			return filter, fmt.Errorf("--severity %q: %w", s, err)
		}
		filter.Severities = append(filter.Severities, severity)
	}

	if since > 0 {
		after := now.Add(-since)
		filter.CreatedAt = &domain.TimeRange{After: &after}
	}

	if err := filter.Validate(); err != nil {
		return filter, fmt.Errorf("filter.Validate: %w", err)
	}

	return filter, nil
}
