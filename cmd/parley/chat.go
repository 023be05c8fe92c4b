package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/service/voice"
	"github.com/sandevgo/parley/internal/transport/cli"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/spf13/cobra"
)

var (
	chatTyped bool
	chatMute  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a parley server",
	Long: `Connects to the relay, listens through the configured recognizer (or reads typed lines)
and plays replies through the configured player.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			logger.Fatal().Err(err).Msg("failed to init env")
		}

		appCfg := config.NewAppConfig(ctx)
		cfg := config.NewClientConfig(ctx)
		prompts, err := config.LoadPrompts(ctx, appCfg.GetPromptsPath())
		if err != nil {
			return err
		}

		url, err := cfg.WebSocketURL()
		if err != nil {
			return fmt.Errorf("invalid server url: %w", err)
		}
		client, err := cli.Dial(ctx, url, core.User{ID: cfg.UserID, Email: cfg.UserEmail})
		if err != nil {
			return err
		}
		defer client.Close()

		var opts []cli.ChatOption

		var recognizer voice.Recognizer
		if chatTyped || cfg.RecognizerCmd == "" {
			recognizer = voice.NewLineRecognizer(os.Stdin)
			opts = append(opts, cli.SendEachFinal())
		} else {
			recognizer, err = voice.NewExecRecognizer(cfg.RecognizerCmd)
			if err != nil {
				return err
			}
		}

		if !chatMute && !cfg.Mute {
			var player voice.Player = voice.DiscardPlayer{}
			if cfg.PlayerCmd != "" {
				if player, err = voice.NewExecPlayer(cfg.PlayerCmd); err != nil {
					return err
				}
			}
			synth := voice.NewHTTPSynthesizer(cfg.SpeakURL(), cfg.Voice, speakTimeout)
			speaker := voice.NewController(synth, player,
				voice.WithFillers(voice.RandomFillers(prompts.GetFillers(), cfg.FillerProbability)),
				voice.WithMaxFragmentTokens(cfg.MaxFragmentTokens),
			)
			defer speaker.Stop()
			opts = append(opts, cli.WithSpeaker(speaker))
		}

		logger.Debug().Str("url", url).Bool("typed", chatTyped || cfg.RecognizerCmd == "").Msg("chat connected")

		producer := voice.NewProducer(recognizer, cfg.RestartDelay)
		return cli.NewChat(client, producer, cmd.OutOrStdout(), opts...).Run(ctx)
	},
}

func init() {
	chatCmd.Flags().BoolVarP(&chatTyped, "text", "t", false, "read typed lines from stdin instead of the recognizer")
	chatCmd.Flags().BoolVarP(&chatMute, "mute", "m", false, "do not play replies")
	rootCmd.AddCommand(chatCmd)
}
