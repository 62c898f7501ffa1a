package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/store"
)

func newBackupCmd() *cobra.Command {
	var (
		dir  string
		keep int
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of the configured store",
		Long: `backup reads the service configuration from the environment (and the
--env file), opens the configured store and writes one snapshot directory
of UTF-8 CSV files. The snapshot can be used directly as a csv store
DATA_DIR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Backup.Dir
			}
			if !cmd.Flags().Changed("keep") {
				keep = cfg.Backup.Keep
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			opts, err := core.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			svc := core.NewService(st, opts)

			res, err := svc.BackupTo(core.ContextWithActor(ctx, "asistenciactl"), dir, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s: %d students, %d attendance, %d users, %d audit entries (pruned %d)\n",
				res.Dir, res.Students, res.Attendance, res.Users, res.Audit, res.Pruned)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "backup directory (default BACKUP_DIR)")
	cmd.Flags().IntVar(&keep, "keep", 0, "snapshots to retain, 0 keeps all (default BACKUP_KEEP)")
	return cmd
}
