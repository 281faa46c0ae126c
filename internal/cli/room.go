package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomChangeHostCmd())
	cmd.AddCommand(newRoomSearchCmd())

	return cmd
}

func roomPath(guid string) string {
	return "/api/v1/rooms/" + url.PathEscape(guid)
}

func newRoomCreateCmd() *cobra.Command {
	var name string
	var capacity int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room hosted by the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"name": name}
			if cmd.Flags().Changed("capacity") {
				req["capacity"] = capacity
			}
			var result Room

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Room name (required)")
	cmd.Flags().IntVar(&capacity, "capacity", 0, "Maximum participants including the host")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Room

			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <guid>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room

			if err := client.Get(roomPath(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <guid>",
		Short: "Join a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomAction

			if err := client.Post(roomPath(args[0])+"/join", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <guid>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomAction

			if err := client.Post(roomPath(args[0])+"/leave", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomChangeHostCmd() *cobra.Command {
	var userID uint64

	cmd := &cobra.Command{
		Use:   "change-host <guid>",
		Short: "Hand a room you host to another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]uint64{"userId": userID}
			var result RoomAction

			if err := client.Post(roomPath(args[0])+"/change-host", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&userID, "user-id", 0, "ID of the new host (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newRoomSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <username>",
		Short: "List the rooms a user has joined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Room

			if err := client.Get("/api/v1/rooms/user/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}
