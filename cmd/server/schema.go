package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/pixelplace/internal/protocol"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print JSON Schemas for the client message types",
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := json.MarshalIndent(protocol.Schemas(), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
