// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newSitesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sites <binary>",
		Short: "List the branch sites of an executable, grouped by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			im, err := openImage(args[0])
			if err != nil {
				return err
			}
			r, err := buildReport(im)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return writeText(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}
