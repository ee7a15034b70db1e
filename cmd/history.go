package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent zap runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		zaps, err := db.ListRecentZaps(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(zaps) == 0 {
			fmt.Println("No zaps yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tOUTCOME\tSATS\tURL\tDETAIL")
		for _, z := range zaps {
			detail := z.Message
			if detail == "" {
				detail = z.PaymentHash
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				z.OccurredAt.Local().Format("2006-01-02 15:04"), z.Outcome, z.AmountSats, z.ContentURL, utils.Truncate(detail, 40))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 20, "Number of runs to show")
}
