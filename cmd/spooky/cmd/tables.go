package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// tablesCmd represents the tables command
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables and their record counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var names []string
		for name := range db.TableNames() {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			fmt.Printf("%s\t%d\n", name, db.TableLen(name))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
