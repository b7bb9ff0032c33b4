package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codewiresh/cqlwire/compress"
	"github.com/codewiresh/cqlwire/frame"
	"github.com/codewiresh/cqlwire/message"
	"github.com/codewiresh/cqlwire/primitive"
	"github.com/codewiresh/cqlwire/values"
)

func decodeCmd() *cobra.Command {
	var (
		hexFlag    bool
		schemaFlag string
	)
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a stream of frame envelopes (file or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := readInput(args, hexFlag)
			if err != nil {
				return err
			}
			var schema *Schema
			if schemaFlag != "" {
				if schema, err = loadSchema(schemaFlag); err != nil {
					return err
				}
			}
			codec := &frame.Codec{
				Version:    primitive.Version(cfg.Version),
				Compressor: compressor(),
			}
			return dumpFrames(cmd.OutOrStdout(), codec, buf, schema)
		},
	}
	cmd.Flags().BoolVar(&hexFlag, "hex", false, "Input is hex text, not raw bytes")
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "YAML column schema for decoding row values")
	return cmd
}

func compressor() compress.Compressor {
	switch cfg.Compression {
	case "lz4":
		return compress.LZ4{}
	case "snappy":
		return compress.Snappy{}
	}
	return nil
}

func readInput(args []string, hexText bool) ([]byte, error) {
	var raw []byte
	var err error
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, err
	}
	if hexText {
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, string(raw))
		return hex.DecodeString(clean)
	}
	return raw, nil
}

func dumpFrames(w io.Writer, codec *frame.Codec, buf []byte, schema *Schema) error {
	n := 0
	for len(buf) > 0 {
		res := codec.Decode(buf)
		if res.Err != nil {
			return fmt.Errorf("frame %d: %w", n, res.Err)
		}
		if !res.Complete() {
			return fmt.Errorf("frame %d: truncated, need %d more bytes", n, res.NeedMore)
		}
		printFrame(w, res.Frame, schema)
		slog.Debug("frame decoded", "index", n, "bytes", res.Consumed)
		buf = buf[res.Consumed:]
		n++
	}
	return nil
}

func printFrame(w io.Writer, f *frame.Frame, schema *Schema) {
	dir := paint(ansiYellow, "request")
	if f.Response {
		dir = paint(ansiGreen, "response")
	}
	fmt.Fprintf(w, "%s %s stream=%d v%d flags=0x%02X body=%dB\n",
		paint(ansiBold, f.Op.String()), dir, f.Stream, f.Version, byte(f.Flags), len(f.Body))

	if f.Response {
		in, err := message.ParseInbound(f)
		if err != nil {
			fmt.Fprintf(w, "  %s %v\n", paint(ansiRed, "undecodable:"), err)
			return
		}
		printInbound(w, in, schema)
		return
	}
	m, err := message.DecodeRequest(f.Op, f.Body, f.Version)
	if err != nil {
		fmt.Fprintf(w, "  %s %v\n", paint(ansiRed, "undecodable:"), err)
		return
	}
	fmt.Fprintf(w, "  %+v\n", m)
}

func printInbound(w io.Writer, in *message.Inbound, schema *Schema) {
	if in.TracingID != nil {
		fmt.Fprintf(w, "  tracing: %s\n", in.TracingID)
	}
	for _, warn := range in.Warnings {
		fmt.Fprintf(w, "  %s %s\n", paint(ansiYellow, "warning:"), warn)
	}
	if err, ok := in.Message.(error); ok {
		fmt.Fprintf(w, "  %s %v\n", paint(ansiRed, "server error:"), err)
		return
	}
	if rows, ok := in.Message.(*message.RowsResult); ok {
		printRows(w, rows, schema)
		return
	}
	fmt.Fprintf(w, "  %+v\n", in.Message)
}

func printRows(w io.Writer, rows *message.RowsResult, schema *Schema) {
	cols := make([]SchemaColumn, 0, rows.Metadata.ColumnCount)
	switch {
	case !rows.Metadata.NoMetadata:
		for _, c := range rows.Metadata.Columns {
			cols = append(cols, SchemaColumn{Name: c.Name, parsed: c.Type})
		}
	case schema != nil:
		cols = schema.Columns
	}
	fmt.Fprintf(w, "  %d row(s), %d column(s)\n", len(rows.Rows), rows.Metadata.ColumnCount)
	for i, row := range rows.Rows {
		fmt.Fprintf(w, "  row %d:\n", i)
		for j, cell := range row {
			name := fmt.Sprintf("col%d", j)
			if j < len(cols) && cols[j].Name != "" {
				name = cols[j].Name
			}
			fmt.Fprintf(w, "    %s = %s\n", name, renderCell(cell, cols, j))
		}
	}
}

func renderCell(cell primitive.Value, cols []SchemaColumn, j int) string {
	if cell.IsNull() {
		return "null"
	}
	if j >= len(cols) || cols[j].parsed.Kind == 0 {
		return fmt.Sprintf("0x%s", hex.EncodeToString(cell.Data))
	}
	v, err := values.Unmarshal(cols[j].parsed, cell.Data)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return fmt.Sprintf("%v", v)
}
