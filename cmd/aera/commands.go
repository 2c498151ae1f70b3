package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aeracore/internal/core"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile unsynced records now, pushing them to the peer when configured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = n.Close() }()
			count, err := n.svc.SyncPending(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d record(s)\n", count)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the stored document and reseed it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset discards all data; pass --yes to confirm")
			}
			n, err := a.openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = n.Close() }()
			if err := n.svc.ResetData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "document reset to seed data")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

var showSections = []string{"all", "users", "organizations", "inventories", "requests", "replenishment", "aggregate"}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "show [section]",
		Short:     "Print the stored document, or one section of it, as JSON",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: showSections,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = n.Close() }()
			ctx := cmd.Context()
			doc, err := n.svc.Snapshot(ctx)
			if err != nil {
				return err
			}
			section := "all"
			if len(args) == 1 {
				section = args[0]
			}
			var out any
			switch section {
			case "users":
				out = doc.Users
			case "organizations":
				out = doc.Organizations
			case "inventories":
				out = doc.Inventories
			case "requests":
				out = doc.Requests
			case "replenishment":
				out = doc.ReplenishmentRequests
			case "aggregate":
				if out, err = n.svc.ReplenishmentAggregation(ctx); err != nil {
					return err
				}
			default:
				out = doc
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newTickerCmd(a *app) *cobra.Command {
	var (
		userID string
		set    string
	)
	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Print the ticker a user sees, or set the system alert",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.openNode(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = n.Close() }()
			ctx := cmd.Context()
			if cmd.Flags().Changed("set") {
				if _, err := n.svc.SetSystemTicker(ctx, set); err != nil {
					return err
				}
			}
			profile := core.GuestProfile()
			if userID != "" {
				if profile, err = n.svc.GetUser(ctx, userID); err != nil {
					return err
				}
			}
			msg, err := n.svc.Ticker(ctx, profile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "resolve for this user id (default guest)")
	cmd.Flags().StringVar(&set, "set", "", "set the system alert first; empty clears it")
	return cmd
}
