package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"technovit/internal/platform/config"
	"technovit/internal/platform/logger"
	storage "technovit/internal/storage/mongo"
)

func newMigrateIDsCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate-ids",
		Short: "Rewrite string identity references as native ObjectIDs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.StoreMongo {
				return fmt.Errorf("migrate-ids requires STORE_DRIVER=%s", config.StoreMongo)
			}
			log := logger.New(cfg.Environment, cfg.LogLevel)
			st, err := openStores(cmd.Context(), cfg.Store, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.close(context.Background()) }()

			report, err := storage.MigrateReferenceIDs(cmd.Context(), st.db, log, dryRun)
			if err != nil {
				return err
			}
			for coll, n := range report {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d documents\n", coll, n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report affected documents without writing")
	return cmd
}
