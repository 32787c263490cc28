package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/wave-plaza-bot/internal/database"
	"github.com/iliyamo/wave-plaza-bot/internal/utils"
)

// dbEnv is the subset of the configuration the migrate command needs, so
// migrations can run without bot credentials.
type dbEnv struct {
	User string `env:"DB_USER,required,notEmpty"`
	Pass string `env:"DB_PASS"`
	Host string `env:"DB_HOST,required,notEmpty"`
	Port string `env:"DB_PORT,required,notEmpty"`
	Name string `env:"DB_NAME,required,notEmpty"`
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			var cfg dbEnv
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("parse env: %w", err)
			}
			db, err := database.Open(cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			n, err := database.Migrate(ctx, db)
			if err != nil {
				return err
			}
			log.Printf("migrate: %d migration(s) applied", n)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var cost int
	var costEnv struct {
		Cost int `env:"BCRYPT_COST" envDefault:"12"`
	}
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("cost") {
				if err := env.Parse(&costEnv); err != nil {
					return fmt.Errorf("parse env: %w", err)
				}
				cost = costEnv.Cost
			}
			hash, err := utils.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost, defaults to BCRYPT_COST or 12")
	return cmd
}
