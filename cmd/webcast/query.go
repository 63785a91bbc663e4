package main

import (
	"github.com/EgorLis/webcast/internal/live"
	"github.com/spf13/cobra"
)

func newConnection(load loader, user string) (*live.Connection, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	return live.New(user, connectionOptions(cfg, nil))
}

func liveCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "live <user>",
		Short: "Report whether the user is live right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := newConnection(load, args[0])
			if err != nil {
				return err
			}
			isLive, err := conn.FetchIsLive(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"uniqueId": conn.UniqueID(), "live": isLive})
		},
	}
}

func infoCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "info <user>",
		Short: "Print the current room snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := newConnection(load, args[0])
			if err != nil {
				return err
			}
			snap, err := conn.FetchRoomInfo(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}
}

func giftsCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "gifts <user>",
		Short: "Print the gift catalogue of the user's room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := newConnection(load, args[0])
			if err != nil {
				return err
			}
			if _, err := conn.FetchRoomID(cmd.Context()); err != nil {
				return err
			}
			gifts, err := conn.FetchAvailableGifts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(gifts)
		},
	}
}

func sendCmd(load loader) *cobra.Command {
	var o live.ChatOverrides

	cmd := &cobra.Command{
		Use:   "send <user> <text>",
		Short: "Send a chat message to the user's room (needs a session)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := newConnection(load, args[0])
			if err != nil {
				return err
			}
			if o.RoomID == "" {
				if _, err := conn.FetchRoomID(cmd.Context()); err != nil {
					return err
				}
			}
			resp, err := conn.SendMessage(cmd.Context(), args[1], o)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringVar(&o.RoomID, "room", "", "room id (skip lookup)")
	cmd.Flags().StringVar(&o.SessionID, "session-id", "", "session id (overrides config)")
	cmd.Flags().StringVar(&o.RegionToken, "region-token", "", "region token (overrides config)")
	return cmd
}
