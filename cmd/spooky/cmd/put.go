package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/spookydb/spookydb/record"
	"github.com/spookydb/spookydb/store"
)

var putJSON string

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <table> [id]",
	Short: "Write a record from JSON",
	Long: `Encode a JSON object into the record format and store it.

When no id is given a ksuid is generated. An existing id is updated in
place; a new id is created.

Example:
  spooky put users u1 --json '{"name":"Alice","age":28}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := args[0]

		var id string
		if len(args) == 2 {
			id = args[1]
		} else {
			id = ksuid.New().String()
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(putJSON)))
		dec.UseNumber()

		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return fmt.Errorf("parse --json: %w", err)
		}

		fields := make(map[string]record.JSONValue, len(obj))
		for k, v := range obj {
			fields[k] = record.JSON(v)
		}

		buf, _, err := record.Serialize(fields)
		if err != nil {
			return err
		}

		op := store.OpCreate
		if db.ZSetWeight(table, id) != 0 {
			op = store.OpUpdate
		}

		if _, _, err := db.ApplyMutation(table, op, id, buf, nil); err != nil {
			return err
		}

		fmt.Printf("%s %s:%s (%d bytes)\n", op, table, id, len(buf))

		return nil
	},
}

func init() {
	putCmd.Flags().StringVar(&putJSON, "json", "", "JSON object to store")
	_ = putCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(putCmd)
}
