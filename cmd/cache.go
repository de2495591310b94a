package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ainia/pkg/config"
	"ainia/pkg/store/sqlite"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the story cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, cfg.Logger())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if st.db == nil {
				return errors.New("cache stats needs the sqlite store driver")
			}
			stats, err := st.db.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printCacheStats(os.Stdout, stats)
			return nil
		},
	}

	var olderThan time.Duration
	expireCmd := &cobra.Command{
		Use:   "expire",
		Short: "Delete cached stories older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = cfg.Store.CacheTTL
			}
			st, err := openStores(cmd.Context(), cfg, cfg.Logger())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			cutoff := time.Now().Add(-olderThan)
			n, err := st.cache.DeleteOlderThan(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d cached stories created before %s.\n", n, cutoff.UTC().Format(time.RFC3339))
			return nil
		},
	}
	expireCmd.Flags().DurationVar(&olderThan, "older-than", 0, "age cutoff (default: store.cache_ttl)")

	cmd.AddCommand(statsCmd, expireCmd)
	return cmd
}

// printCacheStats prints row counts only. Hit and miss counters live in the
// serving process and are always zero in a fresh CLI run.
func printCacheStats(w io.Writer, st sqlite.Stats) {
	fmt.Fprintf(w, "Entries: %d\nLive:    %d\nExpired: %d\n", st.Entries, st.Live, st.Entries-st.Live)
}
