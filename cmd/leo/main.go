package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leo/internal/app"
	"leo/internal/auth"
	"leo/internal/config"
)

var (
	version = "0.1.0"
	model   string
	prompt  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leo",
		Short: "Personal assistant that lives on your own machine",
		Long: `Leo 🦁 is a personal assistant that runs locally. It keeps notes and
memory in a plain-file workspace and can read and edit files, run
commands, search the web and remember things across conversations.

Run it with no arguments for an interactive chat, or with -p for a
single answer.`,
		SilenceUsage: true,
		RunE:         runApp,
	}

	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use (overrides the config file)")
	rootCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "answer a single prompt and exit")

	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("leo version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if prompt != "" {
		reply, err := application.RunOnce(ctx, prompt)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	return application.Run(ctx)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	if model != "" {
		cfg.Model.Name = model
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAuth) {
			return nil, fmt.Errorf("no Gemini API key configured; set LEO_GEMINI_API_KEY or switch to the gemini-oauth provider and run `leo auth login`")
		}
		return nil, err
	}
	return cfg, nil
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google account authentication",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Sign in with your Google account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider := auth.NewProvider(config.ConfigDir())
			creds, err := provider.Authorize(ctx)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			if creds.Email != "" {
				fmt.Printf("Logged in as %s\n", creds.Email)
			} else {
				fmt.Println("Logged in.")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current authentication state",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := auth.NewProvider(config.ConfigDir())
			creds, err := provider.Credentials()
			if err != nil {
				return err
			}
			if creds == nil {
				fmt.Println("Not logged in. Run `leo auth login`.")
				return nil
			}

			fmt.Println("Logged in.")
			if creds.Email != "" {
				fmt.Printf("  account: %s\n", creds.Email)
			}
			if creds.ProjectID != "" {
				fmt.Printf("  project: %s\n", creds.ProjectID)
			}
			if creds.ExpiresAt != nil {
				state := "valid"
				if creds.IsExpired() {
					state = "expired, will refresh on next use"
				}
				fmt.Printf("  token:   %s (expires %s)\n", state, creds.ExpiresAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := auth.NewProvider(config.ConfigDir())
			if err := provider.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	})

	return cmd
}

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create the workspace and default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.Onboard(cfg.Workspace); err != nil {
				return fmt.Errorf("failed to prepare workspace: %w", err)
			}

			if _, err := os.Stat(config.GetConfigPath()); os.IsNotExist(err) {
				if err := cfg.Save(); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				fmt.Printf("Wrote default config to %s\n", config.GetConfigPath())
			}

			fmt.Printf("Workspace ready at %s\n", cfg.Workspace)
			fmt.Println("Edit AGENTS.md there to shape how Leo behaves.")
			return nil
		},
	}
}
