// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/luxfi/wire"
)

// callCmd represents the call command
var callCmd = &cobra.Command{
	Use:   "call <code> [hex-payload]",
	Short: "Send one message and print the hex reply",
	Long: `Send a payload under a message code and print the reply as hex.

Examples:
  wire call 2 010203
  wire call --addr=127.0.0.1:9000 1 070000000000000000000000`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil {
			return fmt.Errorf("invalid code %q: %w", args[0], err)
		}
		var payload []byte
		if len(args) == 2 {
			if payload, err = hex.DecodeString(args[1]); err != nil {
				return fmt.Errorf("invalid hex payload: %w", err)
			}
		}

		addr, _ := cmd.Flags().GetString("addr")
		transport, _ := cmd.Flags().GetString("transport")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		notify, _ := cmd.Flags().GetBool("notify")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		client, err := wire.Dial(ctx, addr, wire.WithTransport(transport))
		if err != nil {
			return err
		}
		defer client.Close()

		if notify {
			return client.Notify(ctx, int32(code), payload)
		}
		resp, err := client.CallRaw(ctx, int32(code), payload)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(resp))
		return nil
	},
}

func init() {
	callCmd.Flags().String("addr", "127.0.0.1:9000", "Server address")
	callCmd.Flags().String("transport", wire.DefaultTransport, "Transport: zap, json or grpc")
	callCmd.Flags().Duration("timeout", 5*time.Second, "Call timeout")
	callCmd.Flags().Bool("notify", false, "Send a one-way notification")
}
