package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/pkg/platforms/x"
	"github.com/sw33tLie/valuestream/pkg/storage"
)

// canonicalURL maps a post link to the form the service keys signals by.
func canonicalURL(raw string) string {
	if u, ok := x.CanonicalPermalink(raw); ok {
		return u
	}
	return storage.NormalizeContentURL(raw)
}

var signalCmd = &cobra.Command{
	Use:   "signal <url>",
	Short: "Show the crowd-payment signal recorded for a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		u := canonicalURL(args[0])
		st := s.client.Lookup(cmd.Context(), u)
		if st == nil {
			return fmt.Errorf("signal for %s is unavailable right now", u)
		}
		id := "unregistered"
		if st.Registered() {
			id = fmt.Sprint(*st.ContentID)
		}
		fmt.Printf("URL:   %s\nID:    %s\nZaps:  %d\nSats:  %d\n", u, id, st.ZapCount, st.TotalSats)
		return nil
	},
}

var kolCmd = &cobra.Command{
	Use:   "kol",
	Short: "List the curated authors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		handles := s.client.CuratedAuthors(cmd.Context())
		if handles == nil {
			return fmt.Errorf("curated author list is unavailable right now")
		}
		for _, h := range handles {
			fmt.Println("@" + h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signalCmd, kolCmd)
}
