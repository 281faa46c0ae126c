package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User account commands",
	}

	cmd.AddCommand(newUserSignupCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserUpdateCmd())
	cmd.AddCommand(newUserDeleteCmd())

	return cmd
}

func newUserSignupCmd() *cobra.Command {
	var user, pass, mobile string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"username": user,
				"password": pass,
			}
			if cmd.Flags().Changed("mobile-token") {
				req["mobile_token"] = mobile
			}
			var result AuthResult

			if err := client.Post("/api/v1/users", req, &result); err != nil {
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
	cmd.Flags().StringVar(&mobile, "mobile-token", "", "Push notification token")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []User

			if err := client.Get("/api/v1/users", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <username>",
		Short: "Show a user with their rooms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Profile

			if err := client.Get("/api/v1/users/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newUserUpdateCmd() *cobra.Command {
	var oldPass, newPass, mobile string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the password and mobile token of the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"old_password": oldPass,
				"new_password": newPass,
			}
			if cmd.Flags().Changed("mobile-token") {
				req["mobile_token"] = mobile
			}

			if err := client.Patch("/api/v1/users", req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("User updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPass, "old", "", "Current password (required)")
	cmd.Flags().StringVar(&newPass, "new", "", "New password (required)")
	cmd.Flags().StringVar(&mobile, "mobile-token", "", "Push notification token")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/users"); err != nil {
				return err
			}
			if cfg.Persisted() {
				if err := cfg.ClearToken(); err != nil {
					return err
				}
			}

			NewOutput(cfg.Output).PrintMessage("User deleted")
			return nil
		},
	}
}
