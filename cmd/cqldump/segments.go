package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codewiresh/cqlwire/segment"
)

func segmentsCmd() *cobra.Command {
	var hexFlag bool
	cmd := &cobra.Command{
		Use:   "segments [file]",
		Short: "Reassemble a v5 checksummed-segment stream and print the payload as hex",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := readInput(args, hexFlag)
			if err != nil {
				return err
			}
			re := &segment.Reassembler{Compressor: compressor()}
			offset := 0
			for offset < len(buf) {
				res := re.Feed(buf[offset:])
				if res.Err != nil {
					return fmt.Errorf("at byte %d: %w", offset+res.Consumed, res.Err)
				}
				if !res.Complete() && res.Consumed == 0 {
					return fmt.Errorf("at byte %d: truncated, need %d more bytes", offset, res.NeedMore)
				}
				offset += res.Consumed
				if res.Complete() {
					slog.Debug("payload reassembled", "bytes", len(res.Body))
					fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(res.Body))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hexFlag, "hex", false, "Input is hex text, not raw bytes")
	return cmd
}

func crcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crc <hex>",
		Short: "Print the CRC24 and CRC32 of the given hex bytes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := hex.DecodeString(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "crc24: 0x%06X\ncrc32: 0x%08X\n",
				segment.CRC24(p), segment.CRC32(p))
			return nil
		},
	}
}
