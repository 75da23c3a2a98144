package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/driver"
)

var typesCmd = &cobra.Command{
	Use:   "types <module>",
	Short: "Show the LLVM representation of every type layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGlobals(cmd)
		if err != nil {
			return err
		}
		in, ok := loadInputs(cmd, g, args[0])
		if !ok {
			return errFailed
		}
		rows, err := driver.Types(in)
		if err != nil {
			return err
		}
		return typesTable(rows).write(cmd.OutOrStdout(), g.color)
	},
}

func typesTable(rows []driver.TypeRow) *table {
	t := &table{header: []string{"NAME", "KIND", "SIZE", "ALIGN", "REPR"}}
	for _, r := range rows {
		repr := r.Repr
		if r.Error != "" {
			repr = r.Error
		}
		t.add(r.Name, r.Kind, strconv.Itoa(r.Size), strconv.Itoa(r.Align), repr)
	}
	return t
}
