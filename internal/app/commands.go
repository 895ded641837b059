package app

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const initializedMessage = "Initialized the database."

func newInitDBCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Clear the existing data and create new tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.Run(cmd.Context(), a.InitSchema); err != nil {
				return err
			}
			log.Debug().Str("database", a.cfg.Database).Msg("Database initialized")
			_, err := fmt.Fprintln(cmd.OutOrStdout(), initializedMessage)
			return err
		},
	}
}
