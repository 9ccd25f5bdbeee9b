package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spookydb/spookydb/store"
)

// delCmd represents the del command
var delCmd = &cobra.Command{
	Use:   "del <table> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, id := args[0], args[1]

		if db.ZSetWeight(table, id) == 0 {
			return fmt.Errorf("record %s:%s not found", table, id)
		}

		if _, _, err := db.ApplyMutation(table, store.OpDelete, id, nil, nil); err != nil {
			return err
		}

		fmt.Printf("deleted %s:%s\n", table, id)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(delCmd)
}
