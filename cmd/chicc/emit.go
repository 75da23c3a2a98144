package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/driver"
	"github.com/Chic-lang/Chic-sub009/internal/observ"
)

var emitCmd = &cobra.Command{
	Use:   "emit <module.{mpk,msgpack,yaml,yml,json}>",
	Short: "Lower a MIR module to LLVM IR",
	Args:  cobra.ExactArgs(1),
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringP("output", "o", "", "write IR to this file instead of stdout")
	emitCmd.Flags().Int("jobs", 0, "parallel function emission (0 = GOMAXPROCS)")
	emitCmd.Flags().Bool("keep-partial", false, "write the IR of healthy functions even when some fail")
}

func runEmit(cmd *cobra.Command, args []string) error {
	g, err := readGlobals(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	in, ok := loadInputs(cmd, g, args[0])
	if !ok {
		return errFailed
	}
	tracer, cleanup, err := setupTracing(cmd, in.Config.Trace)
	if err != nil {
		return err
	}

	var timer *observ.Timer
	if g.timings {
		timer = observ.NewTimer()
	}
	res, err := driver.Compile(cmd.Context(), in, driver.Options{
		Tracer:         tracer,
		Timer:          timer,
		MaxDiagnostics: g.maxDiagnostics,
	})
	if err != nil {
		cleanup(true)
		return err
	}
	failed := !res.OK()
	cleanup(failed)

	keepPartial, err := cmd.Flags().GetBool("keep-partial")
	if err != nil {
		return err
	}
	if res.Output != nil && (!failed || keepPartial) {
		out, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if werr := writeIR(cmd, out, res.Output.Text); werr != nil {
			res.Bag.Add(diag.NewError(diag.IOWriteFailed, "", werr.Error()))
			failed = true
		}
	}
	printDiagnostics(cmd, g, res.Bag)
	if timer != nil && !g.quiet {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if failed {
		return errFailed
	}
	return nil
}

// loadInputs decodes the module and configuration, applies flag
// overrides, and prints any input failure as a diagnostic.
func loadInputs(cmd *cobra.Command, g globalOptions, path string) (*driver.Inputs, bool) {
	in, err := driver.LoadInputs(cmd.Context(), path, g.configPath)
	if err == nil {
		err = applyOverrides(cmd, &in.Config)
	}
	if err != nil {
		bag := diag.NewBag(1)
		bag.Add(driver.ErrorDiagnostic(err))
		printDiagnostics(cmd, g, bag)
		return nil, false
	}
	return in, true
}

func writeIR(cmd *cobra.Command, path, text string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func printDiagnostics(cmd *cobra.Command, g globalOptions, bag *diag.Bag) {
	if bag.Len() == 0 {
		return
	}
	if g.quiet && !bag.HasErrors() {
		return
	}
	width := 0
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && isTerminal(f) {
		width = terminalWidth(f)
	}
	if err := diag.Pretty(cmd.ErrOrStderr(), bag, diag.PrettyOpts{Color: g.color, ShowNotes: !g.quiet, Width: width}); err != nil {
		fmt.Fprintf(os.Stderr, "chicc: %v\n", err)
	}
}
