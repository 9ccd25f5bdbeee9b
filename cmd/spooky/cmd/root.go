package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spookydb/spookydb/store"
)

var (
	storePath string

	// db is opened by the persistent pre-run and shared by subcommands.
	db *store.Store
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spooky",
	Short: "Inspect and modify a spookydb store",
	Long: `spooky is a small command line client for spookydb stores.

It opens the store directory given by --path and supports reading records
by field name, writing records from JSON, deleting records, and listing
tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		db, err = store.Open(storePath)
		if err != nil {
			return fmt.Errorf("open store at %s: %w", storePath, err)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db == nil {
			return nil
		}

		return db.Close()
	},
}

// Execute runs the root command; errors exit with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "path", "./spooky", "store directory")
}
