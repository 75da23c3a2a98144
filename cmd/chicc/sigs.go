package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/driver"
)

var sigsCmd = &cobra.Command{
	Use:   "sigs <module>",
	Short: "List the lowered signature of every function",
	Args:  cobra.ExactArgs(1),
	RunE:  runSigs,
}

func init() {
	sigsCmd.Flags().String("format", "table", "output format (table|msgpack)")
}

func runSigs(cmd *cobra.Command, args []string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	in, ok := loadInputs(cmd, g, args[0])
	if !ok {
		return errFailed
	}
	rows, err := driver.Signatures(in)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "msgpack":
		return driver.WriteMsgpack(cmd.OutOrStdout(), rows)
	case "table":
	default:
		return fmt.Errorf("unsupported format %q (must be table or msgpack)", format)
	}
	return sigsTable(rows).write(cmd.OutOrStdout(), g.color)
}

func sigsTable(rows []driver.SignatureRow) *table {
	errColor := color.New(color.FgRed)
	symColor := color.New(color.FgCyan)
	t := &table{
		header: []string{"NAME", "SYMBOL", "SIGNATURE"},
		highlight: func(col int, cell string) *color.Color {
			switch {
			case col == 1:
				return symColor
			case col == 2 && strings.HasPrefix(cell, "CG"):
				return errColor
			}
			return nil
		},
	}
	for _, r := range rows {
		sig := strings.TrimPrefix(r.Decl, "declare ")
		if r.Error != "" {
			sig = r.Error
		}
		if r.Library != "" {
			sig += "  [" + r.Library + "]"
		}
		t.add(r.Name, r.Symbol, sig)
	}
	return t
}
