package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spookydb/spookydb/record"
	"github.com/spookydb/spookydb/store"
)

var getFields string

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <table> <id>",
	Short: "Read a record's fields as JSON",
	Long: `Read a record and print the requested fields as JSON.

Record buffers store field-name hashes, not names, so the field names to
decode must be supplied with --fields.

Example:
  spooky get users u1 --fields name,age,active`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, id := args[0], args[1]

		fields := strings.Split(getFields, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		obj, found, err := store.TypedRecord(db, record.JSONBuilder{}, table, id, fields)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("record %s:%s not found", table, id)
		}

		out, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getFields, "fields", "", "comma-separated field names to decode")
	_ = getCmd.MarkFlagRequired("fields")
	rootCmd.AddCommand(getCmd)
}
