// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command stkdump inspects static key branch sites.
//
//	stkdump sites [--json] <binary>
//	stkdump encode --arch arm64 --kind jump --code 0x10000 --target 0x11000
//
// "sites" reads the __static_keys section of an ELF or Mach-O executable,
// resolves each descriptor, groups sites by key in the order Table.Init
// would, and decodes the instruction currently stored at every site.
// "encode" prints the bytes a codec emits for one site.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stkdump",
		Short:        "Inspect static key branch sites",
		SilenceUsage: true,
	}
	root.AddCommand(newSitesCmd(), newEncodeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
