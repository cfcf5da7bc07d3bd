package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"sublet-market/services/listing/internal/draft"

	"github.com/spf13/cobra"
)

type draftStore interface {
	draft.Store
	Keys(ctx context.Context, pattern string) ([]string, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

func newRootCmd(open func() (draftStore, error)) *cobra.Command {
	var store draftStore

	root := &cobra.Command{
		Use:   "draftctl",
		Short: "Inspect and reset persisted listing photo drafts",
		Long: `Inspect and reset the photo drafts the listing service keeps in redis.

Drafts are addressed by owner ID and draft key, the same pair the API uses.

Examples:
  draftctl list                       # List every persisted draft
  draftctl show 5f0c... new-listing   # Print the photos of one draft
  draftctl reset 5f0c... new-listing  # Drop a draft`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return fmt.Errorf("failed to open draft store: %w", err)
			}
			store = s
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List persisted drafts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := store.Keys(cmd.Context(), draft.StorageKey("*"))
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No drafts")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DRAFT\tPHOTOS\tEXPIRES IN")
			for _, key := range keys {
				data, err := store.Get(cmd.Context(), key)
				if err != nil {
					return err
				}
				ttl, err := store.TTL(cmd.Context(), key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", draftKeyOf(key), len(draft.Decode(data)), ttl.Round(time.Second))
			}
			return w.Flush()
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <owner-id> <draft-key>",
		Short: "Print the photos of a draft in order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := draft.StorageKey(args[0] + ":" + args[1])
			data, err := store.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			if data == nil {
				return fmt.Errorf("draft %s:%s not found", args[0], args[1])
			}

			photos := draft.Decode(data)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tPATH\tNOTE")
			for _, p := range photos {
				order := fmt.Sprint(p.Order)
				if p.IsCover() {
					order += " (cover)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", order, p.StoragePath, p.Note)
			}
			return w.Flush()
		},
	}

	resetCmd := &cobra.Command{
		Use:     "reset <owner-id> <draft-key>",
		Aliases: []string{"rm"},
		Short:   "Delete a persisted draft",
		Long: `Delete a persisted draft. Uploaded objects are left in the bucket.

A service instance that still holds the draft in memory keeps serving it, and
writes the whole draft back to redis on its next change. Reset a draft only when
its owner is not editing it, or after restarting the listing service.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Remove(cmd.Context(), draft.StorageKey(args[0]+":"+args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Draft %s:%s removed\n", args[0], args[1])
			return nil
		},
	}

	root.AddCommand(listCmd, showCmd, resetCmd)
	return root
}

// draftKeyOf strips the storage prefix and suffix from a redis key.
func draftKeyOf(storageKey string) string {
	key := strings.TrimPrefix(storageKey, "draft:")
	return strings.TrimSuffix(key, ":photos")
}
