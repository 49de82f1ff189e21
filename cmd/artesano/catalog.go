package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nikolayk812/artesano/internal/catalog"
	"github.com/nikolayk812/artesano/internal/domain"
	"github.com/spf13/cobra"
)

func catalogCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the durable catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [seed.yaml]",
		Short: "Upsert products and courses from a seed file (the embedded seed by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			products, courses, err := readSeed(args)
			if err != nil {
				return err
			}

			cfg, _, err := load()
			if err != nil {
				return err
			}

			s, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.catalog == nil {
				return errors.New("catalog import requires STORE_DRIVER=postgres")
			}

			if err := s.catalog.Import(cmd.Context(), products, courses); err != nil {
				return fmt.Errorf("Import: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d products and %d courses\n", len(products), len(courses))
			return nil
		},
	})

	return cmd
}

func readSeed(args []string) ([]domain.Product, []domain.Course, error) {
	if len(args) == 0 {
		return catalog.DefaultSeed()
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	return catalog.ParseSeed(data)
}
