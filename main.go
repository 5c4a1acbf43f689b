package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"go.aimuz.me/labvoz/config"
	"go.aimuz.me/labvoz/internal/app"
	"go.aimuz.me/labvoz/internal/stubserver"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	debug      bool
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:           "labvoz",
		Short:         "Voice commands for the lab management console",
		Version:       fmt.Sprintf("%s (%s, %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")

	root.AddCommand(
		runCmd(),
		sayCmd(),
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		stubCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("labvoz", "error", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// startService loads the config and wires a service to a terminal console.
func startService(hotkey bool) (*app.Service, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	console := app.NewConsole(os.Stdout, cfg.PageURL)
	svc := app.New(version)
	err = svc.Init(cfg, app.Options{
		Host:   console,
		Prompt: console.Prompt(),
		Hotkey: hotkey,
	})
	if err != nil {
		svc.Shutdown()
		return nil, nil, err
	}
	return svc, cfg, nil
}

func runCmd() *cobra.Command {
	var noHotkey bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for voice and typed commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("starting labvoz", "version", version, "commit", commit, "date", date)

			svc, cfg, err := startService(!noHotkey)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			svc.Start(ctx)

			fmt.Printf("labvoz %s · %s · %s\n", version, cfg.BaseURL, svc.Status())
			if svc.VoiceEnabled() {
				fmt.Printf("Pulsa Enter o %s para activar el micrófono. /salir para terminar.\n", cfg.Hotkey)
			} else {
				fmt.Println("Micrófono no disponible: escribe los comandos. /salir para terminar.")
			}

			// Scanning stdin cannot be interrupted, so a signal abandons it.
			done := make(chan error, 1)
			go func() { done <- svc.Interact(ctx, os.Stdin) }()

			select {
			case err := <-done:
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			case <-ctx.Done():
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&noHotkey, "no-hotkey", false, "do not install the global hotkey")
	return cmd
}

func sayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <command...>",
		Short: "Dispatch one command as if it had been spoken",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := startService(false)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			svc.Say(cmd.Context(), strings.Join(args, " "))
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Start an API session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := startService(false)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			return svc.Login(cmd.Context(), args[0])
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the API session",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := startService(false)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			if err := svc.Logout(); err != nil {
				return err
			}
			fmt.Println(svc.Status())
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the API session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := startService(false)
			if err != nil {
				return err
			}
			defer svc.Shutdown()

			fmt.Println(svc.Status())
			if exp := svc.Session().ExpiresAt; !exp.IsZero() {
				fmt.Printf("expira: %s\n", exp.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func stubCmd() *cobra.Command {
	var addr, secret string
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local stand-in for the lab management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := []byte(secret)
			if len(key) == 0 {
				key = make([]byte, 32)
				if _, err := rand.Read(key); err != nil {
					return fmt.Errorf("generate secret: %w", err)
				}
			}
			stub, err := stubserver.New(stubserver.Config{Secret: key})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           stub,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Error("shutdown stub server", "error", err)
				}
			}()

			slog.Info("stub api listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("LABVOZ_STUB_SECRET"), "token signing secret (random if empty)")
	return cmd
}
