package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/auth"
)

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage wallet and owner session tokens",
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var role string
	var token string
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a session token for the wallet or owner role",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("token is required for login")
			}
			if expiresIn < 0 {
				return fmt.Errorf("--expires-in must not be negative")
			}

			cred := &auth.Credential{Token: token}
			if expiresIn > 0 {
				cred.ExpiresAt = time.Now().Add(expiresIn)
			}
			if err := auth.SetCredential(r, cred); err != nil {
				return fmt.Errorf("save credential: %w", err)
			}

			fmt.Printf("Session saved for %s (%s).\n", r, auth.Mask(token))
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "", "Session role (wallet|owner)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Session token to save")
	cmd.Flags().DurationVar(&expiresIn, "expires-in", 0, "Forget the token after this long (0 keeps it)")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove one session or all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(role) == "" {
				if err := auth.DeleteAllCredentials(); err != nil {
					return fmt.Errorf("delete all credentials: %w", err)
				}
				fmt.Println("Logged out from all roles.")
				return nil
			}

			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			if err := auth.DeleteCredential(r); err != nil {
				return fmt.Errorf("delete credential: %w", err)
			}
			fmt.Printf("Logged out from %s.\n", r)
			return nil
		},
	}

	cmd.Flags().StringVarP(&role, "role", "r", "", "Session role")
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := auth.LoadStore()
			if err != nil {
				return fmt.Errorf("load auth store: %w", err)
			}
			if len(store.Credentials) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}

			fmt.Println("Saved sessions:")
			for _, r := range []auth.Role{auth.RoleWallet, auth.RoleOwner} {
				cred := store.Credentials[r]
				if cred == nil {
					continue
				}
				status := "active"
				if cred.IsExpired() {
					status = "expired"
				}
				expires := ""
				if !cred.ExpiresAt.IsZero() {
					expires = " expires=" + cred.ExpiresAt.Format(time.RFC3339)
				}
				fmt.Printf("- %s token=%s status=%s%s\n", r, auth.Mask(cred.Token), status, expires)
			}
			return nil
		},
	}
}
