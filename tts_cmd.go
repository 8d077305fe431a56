package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/spelldeck/spelldeck/tts"
)

var (
	ttsUser    string
	speakOut   string
	speakVoice string
	speakSpeed float64
)

var ttsCmd = &cobra.Command{
	Use:   "tts",
	Short: "Choose the voice provider and synthesize speech",
	Args:  cobra.NoArgs,
}

var ttsProviderCmd = &cobra.Command{
	Use:       "provider [google|minimax|browser]",
	Short:     "Show or change the voice provider",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(tts.Google), string(tts.MiniMax), string(tts.Browser)},
	RunE: withSpeech(func(cmd *cobra.Command, sp *speech, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			current := sp.CurrentFor(ttsUser)
			for _, p := range tts.Providers {
				mark := "  "
				if p == current {
					mark = keyword("▸ ")
				}
				status := ""
				if !sp.Available(p) {
					status = faint(" (not configured)")
				}
				fmt.Fprintf(out, "%s%-8s %s%s\n", mark, p, p.Label(), status)
			}
			return nil
		}

		p, err := tts.ParseProvider(args[0])
		if err != nil {
			return err
		}
		msg, err := sp.SetFor(ttsUser, p)
		if msg != "" {
			fmt.Fprintln(out, msg)
		}
		return err
	}),
}

var ttsSpeakCmd = &cobra.Command{
	Use:   "speak TEXT",
	Short: "Synthesize TEXT with the selected provider into an MP3 file",
	Args:  cobra.ExactArgs(1),
	RunE: withSpeech(func(cmd *cobra.Command, sp *speech, args []string) error {
		audio, err := sp.SpeakFor(cmd.Context(), ttsUser, args[0], tts.Options{Voice: speakVoice, Speed: speakSpeed})
		if err != nil {
			var te *tts.Error
			if errors.As(err, &te) {
				fmt.Fprintln(cmd.ErrOrStderr(), warning(te.UserMessage()))
			}
			return err
		}
		if audio.Native() {
			fmt.Fprintln(cmd.OutOrStdout(), faint("The browser voice is selected; there is no audio to write."))
			return nil
		}

		if err := os.WriteFile(speakOut, audio.Data, 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("unable to write audio: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s of %s audio to %s.\n",
			humanize.Bytes(uint64(len(audio.Data))), audio.Provider.Label(), speakOut)
		return nil
	}),
}

// withSpeech opens the provider selector for the duration of run.
func withSpeech(run func(*cobra.Command, *speech, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sp, err := openSpeech(cfg)
		if err != nil {
			return err
		}
		defer sp.Close() //nolint:errcheck

		return run(cmd, sp, args)
	}
}

func init() {
	ttsCmd.PersistentFlags().StringVarP(&ttsUser, "user", "u", "", "act for this user (default: the deployment default)")
	ttsSpeakCmd.Flags().StringVarP(&speakOut, "output", "o", "speech.mp3", "file to write")
	ttsSpeakCmd.Flags().StringVar(&speakVoice, "voice", "", "provider specific voice id")
	ttsSpeakCmd.Flags().Float64Var(&speakSpeed, "speed", 0, "speaking rate (0 uses the configured rate)")

	ttsCmd.AddCommand(ttsProviderCmd, ttsSpeakCmd)
}
