package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yhzhou/smartcal/internal/profile"
	"github.com/yhzhou/smartcal/plugin/ai"
	"github.com/yhzhou/smartcal/plugin/ai/chinesetime"
	"github.com/yhzhou/smartcal/server"
	"github.com/yhzhou/smartcal/server/service/assistant"
	"github.com/yhzhou/smartcal/store"
	"github.com/yhzhou/smartcal/store/db"
)

const version = "0.2.0"

var (
	rootCmd = &cobra.Command{
		Use:   "smartcal",
		Short: "A conversational scheduling assistant",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:     viper.GetString("mode"),
				Addr:     viper.GetString("addr"),
				Port:     viper.GetInt("port"),
				Data:     viper.GetString("data"),
				Driver:   viper.GetString("driver"),
				DSN:      viper.GetString("dsn"),
				Secret:   viper.GetString("secret"),
				Timezone: viper.GetString("timezone"),
				Version:  version,
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", "error", err)
				os.Exit(1)
			}

			setupLogger(instanceProfile)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := run(ctx, instanceProfile); err != nil {
				slog.Error("server exited with error", "error", err)
				cancel()
				os.Exit(1)
			}
		},
	}
)

func init() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8232, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("secret", "", "secret used to sign access tokens")
	rootCmd.PersistentFlags().String("timezone", "", "IANA timezone for date phrase resolution")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "secret", "timezone"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 8232)
	viper.SetDefault("driver", "sqlite")
	viper.SetEnvPrefix("smartcal")
	viper.AutomaticEnv()
}

func run(ctx context.Context, instanceProfile *profile.Profile) error {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}

	storeInstance := store.New(driver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	location, err := time.LoadLocation(instanceProfile.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, falling back to local", "timezone", instanceProfile.Timezone)
		location = time.Local
	}

	var llm ai.LLMService
	if instanceProfile.IsAIEnabled() {
		llm, err = ai.NewLLMService(ai.NewLLMConfigFromProfile(instanceProfile))
		if err != nil {
			slog.Warn("LLM service unavailable, chat features degraded", "error", err)
			llm = nil
		} else {
			slog.Info("LLM service ready", "provider", instanceProfile.AILLMProvider, "model", instanceProfile.AILLMModel)
		}
	} else {
		slog.Info("AI disabled, chat features degraded")
	}

	engine := assistant.New(storeInstance, llm, chinesetime.NewParser(location))

	s, err := server.NewServer(instanceProfile, storeInstance, engine)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.Shutdown(ctx)
		return err
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig.String())
		s.Shutdown(ctx)
		return nil
	}
}

func setupLogger(instanceProfile *profile.Profile) {
	var handler slog.Handler
	if instanceProfile.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
