package command

// root.go defines the root command for reviewhubctl and the shared
// bootstrap (config, logger, database) every subcommand uses.

import (
	"fmt"
	"log/slog"
	"os"

	"reviewhub/database"
	"reviewhub/internal/config"
	"reviewhub/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reviewhubctl",
	Short: "reviewhubctl - ReviewHub administration",
	Long: `reviewhubctl runs administrative tasks against the ReviewHub database:
apply the schema, create a superuser, and change user roles.

It reads the same environment (and optional .env file) as the API server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd, createSuperuserCmd, setRoleCmd)
}

// env is the bootstrapped state a subcommand works with.
type env struct {
	cfg *config.Config
	log *slog.Logger
	db  *gorm.DB
}

// openEnv loads config, builds a logger writing to stderr and opens the database.
func openEnv() (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	db, err := database.OpenGorm(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	if err := database.Close(e.db); err != nil {
		e.log.Warn("closing database", "error", err)
	}
}
