// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"code.hybscloud.com/statickey/arch"
)

func newEncodeCmd() *cobra.Command {
	var goarch, kind, code, target string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the instruction bytes for one branch site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := arch.ForArch(goarch)
			if err != nil {
				return err
			}
			var k arch.Kind
			switch kind {
			case "nop":
				k = arch.Nop
			case "jump":
				k = arch.Jump
			default:
				return fmt.Errorf("--kind: want nop or jump, got %q", kind)
			}
			c, err := strconv.ParseUint(code, 0, 64)
			if err != nil {
				return fmt.Errorf("--code: %w", err)
			}
			t, err := strconv.ParseUint(target, 0, 64)
			if err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "% x\n", codec.Encode(k, uintptr(c), uintptr(t)))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&goarch, "arch", runtime.GOARCH, "instruction set (386, amd64, arm64, riscv64, loong64)")
	f.StringVar(&kind, "kind", "jump", "nop or jump")
	f.StringVar(&code, "code", "0", "site address")
	f.StringVar(&target, "target", "0", "jump target address")
	return cmd
}
