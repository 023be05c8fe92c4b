package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/providers/tts"
	"github.com/sandevgo/parley/internal/service/voice"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/spf13/cobra"
)

const speakTimeout = 60 * time.Second

var (
	speakOut      string
	speakVoice    string
	speakLanguage string
)

var speakCmd = &cobra.Command{
	Use:          "speak [text]",
	Short:        "Synthesize text once and save or play it",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		logger := log.FromCtx(ctx)
		if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
			logger.Fatal().Err(err).Msg("failed to init env")
		}

		voiceCfg := config.NewVoiceConfig(ctx)
		speech, err := tts.New(ctx, voiceCfg)
		if err != nil {
			return err
		}

		audio, err := speech.Synthesize(ctx, core.SpeechRequest{
			Text:     strings.Join(args, " "),
			Voice:    speakVoice,
			Language: speakLanguage,
		})
		if err != nil {
			return fmt.Errorf("synthesize: %w", err)
		}

		if speakOut != "" {
			if err := os.WriteFile(speakOut, audio, 0644); err != nil {
				return err
			}
			logger.Info().Str("path", speakOut).Int("bytes", len(audio)).Msg("audio saved")
			return nil
		}

		player, err := voice.NewExecPlayer(config.NewClientConfig(ctx).PlayerCmd)
		if err != nil {
			return err
		}
		return player.Play(ctx, audio)
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "", "write audio to this file instead of playing it")
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice override")
	speakCmd.Flags().StringVar(&speakLanguage, "language", "", "language override")
	rootCmd.AddCommand(speakCmd)
}
