package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stashyhq/stashy/internal/api"
	"github.com/stashyhq/stashy/internal/bootstrap"
	"github.com/stashyhq/stashy/internal/browser"
	"github.com/stashyhq/stashy/internal/config"
	log "github.com/stashyhq/stashy/internal/logging"
	"github.com/stashyhq/stashy/internal/reader"
	"github.com/stashyhq/stashy/internal/xauth"
)

var (
	servePort     int
	serveOpen     bool
	serveSecure   bool
	serveNoReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stashy server",
	Long: `Start the stashy bookmark server.

This is the main command. It loads the configuration, connects the
tweet store when a DSN is set, and serves the API and viewer.`,
	Run: func(c *cobra.Command, args []string) {
		log.SetupBaseLogger()

		result, err := bootstrap.Bootstrap(context.Background(), cfgFile)
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}

		cfg := result.Config
		if servePort != 0 {
			cfg.Port = servePort
		}

		if err := log.ConfigureLogOutput(cfg.LoggingToFile); err != nil {
			log.Fatalf("Failed to configure log output: %v", err)
		}

		server := api.NewServer(api.Options{
			Config: cfg,
			XAuth: xauth.NewClient(xauth.Config{
				ClientID:     cfg.X.ClientID,
				ClientSecret: cfg.X.ClientSecret,
				CallbackURL:  cfg.X.CallbackURL,
				AuthURL:      cfg.X.AuthURL,
				TokenURL:     cfg.X.TokenURL,
				APIBaseURL:   cfg.X.APIBaseURL,
			}, nil),
			Store:         result.Store,
			Reader:        reader.New(cfg.Reader.UserAgent, nil),
			SecureCookies: serveSecure,
		})

		if !serveNoReload {
			// Hot reload covers log output and the read-article rate
			// limit; port and credentials need a restart.
			watcher, errWatch := config.NewWatcher(result.ConfigFilePath, func(next *config.Config) {
				server.ApplyConfig(next)
				if errLog := log.ConfigureLogOutput(next.LoggingToFile); errLog != nil {
					log.Warnf("failed to reconfigure log output: %v", errLog)
				}
			})
			if errWatch != nil {
				log.Warnf("config watch disabled: %v", errWatch)
			} else {
				defer watcher.Close()
			}
		}

		if serveOpen {
			go openViewer(cfg.Port)
		}

		log.Infof("stashy listening on :%d", cfg.Port)
		if err := server.Run(); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	},
}

// openViewer opens the local viewer once the listener is likely up.
func openViewer(port int) {
	time.Sleep(300 * time.Millisecond)
	url := fmt.Sprintf("http://localhost:%d/", port)
	if !browser.IsAvailable() {
		log.Warnf("No browser available; open %s manually", url)
		return
	}
	if err := browser.OpenURL(url); err != nil {
		log.Warnf("Failed to open browser: %v", err)
	}
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "server port (overrides config)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "open the viewer in a browser after start")
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookies", false, "mark credential cookies Secure (behind TLS)")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "disable config file watching")
	rootCmd.AddCommand(serveCmd)
}
