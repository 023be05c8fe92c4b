package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/service/installer"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/spf13/cobra"
)

var (
	initForce    bool
	initDefaults bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the runtime directory with .env and prompts.yaml",
	Long: `Walks through provider, model, memory and speech settings and writes them
to .env in the runtime directory together with the default prompts.yaml.

With --defaults, or when stdin is not a terminal, a commented template is
written instead.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)
		runtimePath := config.GetRuntimePath()

		if initDefaults || !isatty.IsTerminal(os.Stdin.Fd()) {
			envPath, err := installer.WriteEnv(runtimePath, nil, initForce)
			if err != nil {
				return err
			}
			if _, err := installer.WritePrompts(runtimePath, initForce); err != nil {
				return err
			}
			logger.Info().Msgf("wrote template %s", envPath)
			logger.Info().Msg("Edit .env, then run 'parley serve'.")
			return nil
		}

		state, err := installer.RunWizard(installer.Options{RuntimePath: runtimePath, Force: initForce})
		if err != nil {
			return err
		}

		logger.Info().
			Str("provider", state.Get("LLM_PROVIDER")).
			Str("model", state.Get("LLM_MODEL")).
			Msgf("initialized runtime directory at: %s", runtimePath)
		logger.Info().Msg("Run 'parley serve' to start the relay.")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write a commented template without asking")
	rootCmd.AddCommand(initCmd)
}
