package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"drive-go/internal/app"
	"drive-go/internal/config"
	"drive-go/internal/httpapi"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads secrets from the drive env file and a local .env, if present.
// Variables already set in the environment win.
func loadEnv(defaults *app.Defaults) error {
	for _, path := range []string{defaults.EnvFile, ".env"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// readConfig loads the env files and the config file.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	if err := loadEnv(defaults); err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a DriveApp. The caller must call
// a.Close with the command's result.
// command identifies the CLI command being run (e.g. "upload", "serve").
func newApp(ctx context.Context, command string) (*app.DriveApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewDriveApp(ctx, cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withUser runs fn against a fresh app on behalf of the user named by the
// --user flag.
func withUser(cmd *cobra.Command, command string, fn func(ctx context.Context, a *app.DriveApp, owner string) error) (err error) {
	ref, _ := cmd.Flags().GetString("user")
	if ref == "" {
		ref = os.Getenv("DRIVE_USER")
	}
	if ref == "" {
		return fmt.Errorf("no user given: pass --user or set DRIVE_USER")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, command)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(err); err == nil {
			err = cerr
		}
	}()

	u, err := a.FindUser(ctx, ref)
	if err != nil {
		return err
	}
	return fn(ctx, a, u.ID)
}

// optionalFlag returns a pointer to a string flag's value, or nil if unset.
func optionalFlag(cmd *cobra.Command, name string) *string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil
	}
	return &v
}

var rootCmd = &cobra.Command{
	Use:           "drive",
	Short:         "Personal cloud drive with semantic search",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		fmt.Println("Run 'drive migrate' to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Log Level: %s\n", cfg.LogLevel)
		fmt.Printf("Database:  %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		switch cfg.Blob.Type {
		case "s3":
			fmt.Printf("Blobs:     s3 bucket=%s prefix=%s\n", cfg.Blob.S3Bucket, cfg.Blob.S3Prefix)
		default:
			fmt.Printf("Blobs:     %s %s\n", cfg.Blob.Type, cfg.Blob.FSRoot)
		}
		fmt.Printf("Embedding: %s (dimension %d)\n", cfg.Embedding.Type, cfg.Embedding.Dimension)
		fmt.Printf("Server:    %s\n", cfg.Server.Addr)
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.Migrate(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		name, _ := cmd.Flags().GetString("name")
		password, err := readPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, "user-add")
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(err); err == nil {
				err = cerr
			}
		}()

		u, err := a.CreateUser(ctx, args[0], name, password)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show ID|EMAIL",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx, "user-show")
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(err); err == nil {
				err = cerr
			}
		}()

		u, err := a.FindUser(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ID:      %s\n", u.ID)
		fmt.Printf("Email:   %s\n", u.Email)
		fmt.Printf("Name:    %s\n", u.DisplayName)
		fmt.Printf("Created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the metadata database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx, "db-backup")
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(err); err == nil {
				err = cerr
			}
		}()

		if err := a.BackupDatabase(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Database written to %s\n", args[0])
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database and blob store",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx, "health")
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(err); err == nil {
				err = cerr
			}
		}()

		h := a.Health(ctx)
		report := func(name string, err error) {
			if err != nil {
				fmt.Printf("%-9s unavailable: %v\n", name, err)
				return
			}
			fmt.Printf("%-9s ok\n", name)
		}
		report("database", h.Database)
		report("storage", h.Storage)
		if !h.OK() {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(err); err == nil {
				err = cerr
			}
		}()

		cfg := a.Config()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		tokens, err := a.Tokens()
		if err != nil {
			return err
		}

		srv := httpapi.NewServer(a.Service(), httpapi.Options{
			Logger:        a.Logger(),
			Metrics:       a.Metrics(),
			MaxUploadSize: cfg.Ingest.MaxSize,
			CORSOrigins:   cfg.Server.CORSOrigins,
			Tokens:        tokens,
			Authenticate:  a.VerifyUser,
			Health: func(ctx context.Context) (error, error) {
				h := a.Health(ctx)
				return h.Database, h.Storage
			},
		})
		fmt.Printf("Listening on %s (auth: %s)\n", cfg.Server.Addr, cfg.Server.Auth)
		return srv.ListenAndServe(ctx, httpapi.ServeConfig{
			Addr:            cfg.Server.Addr,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "User id or email to act as (default $DRIVE_USER)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// user subcommands
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().String("name", "", "Display name")
	userCmd.AddCommand(userShowCmd)

	// db subcommands
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(searchCmd)
}
