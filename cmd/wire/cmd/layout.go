// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luxfi/wire"
)

// layoutCmd represents the layout command
var layoutCmd = &cobra.Command{
	Use:   "layout <name> <field>...",
	Short: "Print the byte layout of a record declaration",
	Long: `Lay out a record and print its offsets, total size and packed layout.

Each field is name:format, optionally pinned with @offset.

Example:
  wire layout Order id:uint32 symbol:string[8] qty:int64@16`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := make([]wire.Field, 0, len(args)-1)
		for _, arg := range args[1:] {
			f, err := parseField(arg)
			if err != nil {
				return err
			}
			fields = append(fields, f)
		}

		schema, err := wire.NewSchema(args[0], fields...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, slot := range schema.Fields() {
			fmt.Fprintf(out, "%-16s %-12s offset=%d size=%d\n", slot.Name, slot.Format, slot.Offset, slot.Format.Size())
		}
		fmt.Fprintf(out, "size=%d layout=%s\n", schema.Size(), schema.Layout())
		return nil
	},
}

// parseField parses name:format[@offset].
func parseField(s string) (wire.Field, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return wire.Field{}, fmt.Errorf("field %q: want name:format[@offset]", s)
	}

	offset := wire.Follow
	if def, at, pinned := strings.Cut(rest, "@"); pinned {
		n, err := strconv.Atoi(at)
		if err != nil || n < 0 {
			return wire.Field{}, fmt.Errorf("field %q: invalid offset %q", s, at)
		}
		rest, offset = def, n
	}

	format, err := wire.ParseFormat(rest)
	if err != nil {
		return wire.Field{}, fmt.Errorf("field %q: %w", s, err)
	}
	return wire.Field{Name: name, Format: format, Offset: offset}, nil
}
