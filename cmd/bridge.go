package cmd

import (
	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/server"
	"github.com/sw33tLie/valuestream/pkg/bridge"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the privileged network gateway",
}

var bridgeServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over HTTP for other valuestream processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		g := bridge.NewGateway(newOriginStore(db), nil)
		return server.New(g, db, user, pass).Start(listen)
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.AddCommand(bridgeServeCmd)
	bridgeServeCmd.Flags().String("listen", "127.0.0.1:7465", "HTTP listen address")
	bridgeServeCmd.Flags().String("username", "", "Basic auth username")
	bridgeServeCmd.Flags().String("password", "", "Basic auth password")
}
