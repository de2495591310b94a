package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ainia/pkg/config"
	"ainia/pkg/quest"
	"ainia/pkg/safety"
)

func newUsageCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user>...",
		Short: "Show today's story count against the daily limit",
		Args:  cobra.MinimumNArgs(1),
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

			limit := cfg.Pipeline.DailyLimit
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "USER\tDAY\tCOUNT\tLIMIT\tREMAINING\n")
			for _, user := range args {
				if err := safety.ValidateUser(user); err != nil {
					return err
				}
				n, err := st.quota.TodayCount(cmd.Context(), user)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", user, quest.Day(time.Now()), n, limit, max(limit-n, 0))
			}
			return w.Flush()
		},
	}
}
