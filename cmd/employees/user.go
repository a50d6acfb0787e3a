package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/employees-app/internal/storage"
)

var (
	userName  string
	userEmail string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the users records can be attributed to",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user and print its id",
	Long: `Insert a user. Requests that send the id in the configured
auth.user_header act as that user, and the records they create show
the user's name as their creator.`,
	Args: cobra.NoArgs,
	RunE: runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name (required)")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "unique email address (required)")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(userName)
	if name == "" {
		return errors.New("--name must not be blank")
	}
	addr, err := mail.ParseAddress(userEmail)
	if err != nil {
		return fmt.Errorf("--email: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := setupLogger(cfg.Env)

	store, err := openStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer store.Close()

	id, err := store.CreateUser(cmd.Context(), name, addr.Address)
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return fmt.Errorf("a user with email %s already exists", addr.Address)
	}
	if err != nil {
		return err
	}

	log.Debug("user created", slog.Int64("id", id))
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
