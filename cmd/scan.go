package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/engine"
	"github.com/sw33tLie/valuestream/pkg/feed"
	"github.com/sw33tLie/valuestream/pkg/platforms/x"
)

var scanCmd = &cobra.Command{
	Use:   "scan <page.html>",
	Short: "Decorate a saved feed page with signals and zap buttons",
	Long: `Loads a saved feed page, finds posts by curated authors, looks up their
signal and writes the page back with overlays injected. With --zap the
trigger of the matching post is activated once the page is decorated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		zapURL, _ := cmd.Flags().GetString("zap")
		yes, _ := cmd.Flags().GetBool("yes")

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		doc, err := feed.ParseDocument(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("could not parse %s: %w", args[0], err)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		coord := s.coordinator(yes)
		defer coord.Wait()

		e := engine.New(engine.Config{
			Doc:         doc,
			Platform:    x.New(),
			Signals:     s.client,
			Payments:    coord,
			Concurrency: concurrency,
			Log:         utils.Log,
			Alert: func(u, msg string) {
				utils.Log.Errorf("Zap for %s failed: %s", u, msg)
			},
			OnOverlay: func(d *engine.Decorated) {
				utils.Log.Infof("%s  %d zaps, %d sats", d.Unit.Identity.URL, d.State.ZapCount, d.State.TotalSats)
			},
		})

		// A saved page does not change: scan what is there and stop.
		doc.Close()
		if err := e.Run(cmd.Context()); err != nil {
			return err
		}
		utils.Log.Infof("%d overlays attached", len(e.Overlays()))

		if zapURL != "" {
			d := e.Find(canonicalURL(zapURL))
			if d == nil {
				return fmt.Errorf("%s has no overlay on this page", zapURL)
			}
			res, err := d.Trigger.Activate(cmd.Context())
			if err != nil {
				return err
			}
			coord.Wait()
			if err := reportResult(d.Unit.Identity.URL, res); err != nil {
				utils.Log.Error(err)
			}
		}

		out := os.Stdout
		if output != "" {
			if out, err = os.Create(output); err != nil {
				return err
			}
			defer out.Close()
		}
		return doc.Render(out)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("output", "o", "", "Write the decorated page here (default: stdout)")
	scanCmd.Flags().Int("concurrency", 5, "Number of concurrent signal lookups")
	scanCmd.Flags().String("zap", "", "Activate the zap trigger of this post after decorating")
	scanCmd.Flags().BoolP("yes", "y", false, "Pay without asking for confirmation")
}
