package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/wordlens/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings()
		if err != nil {
			return err
		}
		keys := config.Keys
		if len(args) == 1 {
			keys = args
		}
		for _, key := range keys {
			value, err := store.Get(key)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), value)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, value)
			}
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSettings()
		if err != nil {
			return err
		}
		if err := store.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], store.Path())
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	RootCmd.AddCommand(settingsCmd)
}
