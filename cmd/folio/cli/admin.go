package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin credential",
		Long:  "Inspect the single administrator account or reset its password.",
	}

	cmd.AddCommand(newAdminResetPasswordCmd())
	cmd.AddCommand(newAdminShowCmd())

	return cmd
}

// ---------- admin reset-password ----------

func newAdminResetPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new admin password",
		Long: `Set a new admin password without knowing the current one. Sessions
issued before the reset stay valid until they expire or log out.`,
		Example: `  folio admin reset-password                     # prompts for password
  folio admin reset-password --password s3cret-value`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminResetPassword(cmd.OutOrStdout(), password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")

	return cmd
}

func runAdminResetPassword(stdout io.Writer, password string) error {
	// Prompt for password if not provided
	if password == "" {
		fmt.Fprint(stdout, "New password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
		password = string(pwBytes)

		fmt.Fprint(stdout, "Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Fprintln(stdout)

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < service.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", service.MinPasswordLength)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	authSvc, err := newAuthService(ctx, st, cfg)
	if err != nil {
		return err
	}
	if _, err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, password); err != nil {
		return fmt.Errorf("seed admin credential: %w", err)
	}
	if err := authSvc.ResetPassword(ctx, password); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Admin password updated.")
	return nil
}

// ---------- admin show ----------

func newAdminShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminShow(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminShow(stdout io.Writer, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cred, err := st.GetCredential(ctx)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintln(stdout, "No admin account yet. It is created on the first 'folio serve'.")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cred)
	}

	lastLogin := "never"
	if cred.LastLoginAt != nil {
		lastLogin = cred.LastLoginAt.Local().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintf(stdout, "%-12s %s\n", "USERNAME", cred.Username)
	fmt.Fprintf(stdout, "%-12s %s\n", "CREATED", cred.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(stdout, "%-12s %s\n", "UPDATED", cred.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(stdout, "%-12s %s\n", "LAST LOGIN", lastLogin)
	return nil
}
