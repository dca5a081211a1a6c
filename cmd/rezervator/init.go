package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
)

func newInitCommand(opts *options) *cobra.Command {
	var adminUser string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database, seed categories and the first admin operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			logger, closeLog := newLogger(cfg.Log, cmd.OutOrStdout(), cmd.ErrOrStderr())
			defer closeLog()

			password, err := initDatabase(cmd.Context(), cfg.Database, adminUser)
			if err != nil {
				return err
			}
			if password == "" {
				logger.Info("database already initialized", "path", cfg.Database)
				return nil
			}
			printInitResult(cmd.OutOrStdout(), cfg.Database, adminUser, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "admin username on first run")
	return cmd
}

// initDatabase creates the schema, seeds the default categories and, when
// there is no admin yet, creates one. It returns the generated password, or
// "" if an admin already existed. A database file created by a failed init
// is removed.
func initDatabase(ctx context.Context, path, adminUsername string) (password string, err error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	database, err := db.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		database.Close()
		if err != nil && created {
			os.Remove(path)
		}
	}()

	if err := db.EnsureSchema(database); err != nil {
		return "", err
	}
	if err := db.SeedCategories(ctx, database, db.DefaultCategories); err != nil {
		return "", err
	}

	admins, err := store.CountOperators(ctx, database, model.RoleAdmin)
	if err != nil {
		return "", err
	}
	if admins > 0 {
		return "", nil
	}

	password, err = generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateOperator(ctx, database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin operator: %w", err)
	}
	return password, nil
}

func printInitResult(w io.Writer, dbPath, username, password string) {
	fmt.Fprintf(w, "Database ready: %s\n", dbPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Admin operator created:")
	fmt.Fprintf(w, "  Username: %s\n", username)
	fmt.Fprintf(w, "  Password: %s\n", password)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save this password, it cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
