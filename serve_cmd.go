package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spelldeck/spelldeck/internal/server"
	"github.com/spelldeck/spelldeck/tts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: paragraph(fmt.Sprintf("\n%s the proxy endpoints and the record API. Without SPELLDECK_JWT_SECRET every request runs as the configured development user.",
		keyword("Serve"))),
	Example: paragraph("spelldeck serve\nspelldeck serve --addr :8080"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Error("Shutdown incomplete", "err", err)
			}
		}()

		a.speech.settings.OnChange(func(p tts.Provider) {
			log.Info("Voice changed in settings file", "provider", p.Label())
		})
		if err := a.speech.settings.Watch(); err != nil {
			log.Warn("Settings file will not be watched", "err", err)
		}

		deps := server.Deps{
			Records:    a.records,
			AI:         a.ai,
			Images:     a.resolver,
			ImageCache: a.images,
			Speech:     a.speech,
			Engines:    a.speech.engines,
		}
		if cfg.Storage.Backend == "fs" {
			deps.MediaDir = cfg.Storage.Dir
		}
		if !cfg.AuthEnabled() {
			log.Warn("SPELLDECK_JWT_SECRET is not set; all requests run as the development user", "user", cfg.Server.DevUser)
		}

		srv := server.New(cfg.Server, cfg.Secrets.JWTSecret, cfg.TTS.Timeout, deps, log.WithPrefix("http"))
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("dev-user", "", "user id for unauthenticated requests")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.dev_user", serveCmd.Flags().Lookup("dev-user"))
}
