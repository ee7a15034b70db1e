package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/payment"
)

var zapCmd = &cobra.Command{
	Use:   "zap <url>",
	Short: "Pay the configured amount for a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		yes, _ := cmd.Flags().GetBool("yes")

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		u := canonicalURL(args[0])
		req := payment.Request{URL: u, Title: title}
		if st := s.client.Lookup(cmd.Context(), u); st != nil && st.Registered() {
			req.ContentID = st.ContentID
		}

		coord := s.coordinator(yes)
		res := coord.Run(cmd.Context(), req)
		coord.Wait()
		return reportResult(u, res)
	},
}

func reportResult(u string, res payment.Result) error {
	switch res.State {
	case payment.Done:
		utils.Log.Infof("Zapped %d sats to %s (payment hash %s)", res.AmountSats, u, res.PaymentHash)
	case payment.Cancelled:
		utils.Log.Infof("Payment for %s cancelled", u)
	default:
		return fmt.Errorf("zap failed: %s", res.Message())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(zapCmd)
	zapCmd.Flags().String("title", "", "Title sent when the post is registered")
	zapCmd.Flags().BoolP("yes", "y", false, "Pay without asking for confirmation")
}
