package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Login and password commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthPasswordCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result AuthResult

			if err := client.Post("/api/v1/auth/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAuthPasswordCmd() *cobra.Command {
	var oldPass, newPass string

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"oldPassword": oldPass,
				"newPassword": newPass,
			}

			if err := client.Post("/api/v1/auth/change-password", req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPass, "old", "", "Current password (required)")
	cmd.Flags().StringVar(&newPass, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ClearToken(); err != nil {
				return err
			}
			NewOutput(cfg.Output).PrintMessage("Logged out")
			return nil
		},
	}
}
