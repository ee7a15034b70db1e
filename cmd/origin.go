package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/valuestream/internal/utils"
)

var originCmd = &cobra.Command{
	Use:   "origin",
	Short: "Show or change the value-stream service address",
}

var originGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the active service origin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		o, err := newOriginStore(db).Get(cmd.Context())
		if err != nil {
			utils.Log.Warnf("Could not read saved origin: %v", err)
		}
		fmt.Println(o)
		return nil
	},
}

var originSetCmd = &cobra.Command{
	Use:   "set <address>",
	Short: "Save a service origin override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store := newOriginStore(db)
		if err := store.Set(cmd.Context(), args[0]); err != nil {
			return err
		}
		o, _ := store.Get(cmd.Context())
		utils.Log.Infof("Origin saved: %s", o)
		return nil
	},
}

var originResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the override and use the default origin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		store := newOriginStore(db)
		if err := store.Reset(cmd.Context()); err != nil {
			return err
		}
		utils.Log.Infof("Origin reset to %s", store.Default())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(originCmd)
	originCmd.AddCommand(originGetCmd, originSetCmd, originResetCmd)
}
