package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/driver"
)

// globalOptions are the persistent flags every command reads.
type globalOptions struct {
	configPath     string
	color          bool
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readGlobals(cmd *cobra.Command) (globalOptions, error) {
	pf := cmd.Root().PersistentFlags()
	var opts globalOptions
	var err error
	if opts.configPath, err = pf.GetString("config"); err != nil {
		return opts, err
	}
	mode, err := pf.GetString("color")
	if err != nil {
		return opts, err
	}
	if opts.color, err = colorEnabled(mode); err != nil {
		return opts, err
	}
	color.NoColor = !opts.color
	if opts.quiet, err = pf.GetBool("quiet"); err != nil {
		return opts, err
	}
	if opts.timings, err = pf.GetBool("timings"); err != nil {
		return opts, err
	}
	if opts.maxDiagnostics, err = pf.GetInt("max-diagnostics"); err != nil {
		return opts, err
	}
	return opts, nil
}

func colorEnabled(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "auto", "":
		return isTerminal(os.Stderr), nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}

// applyOverrides lets explicitly set flags win over chicc.toml.
func applyOverrides(cmd *cobra.Command, cfg *driver.Config) error {
	flags := []struct {
		name string
		dst  *string
	}{
		{"target-arch", &cfg.Target.Arch},
		{"target-os", &cfg.Target.OS},
		{"trace-level", &cfg.Trace.Level},
		{"trace-format", &cfg.Trace.Format},
		{"trace-output", &cfg.Trace.Output},
	}
	for _, f := range flags {
		fl := cmd.Flags().Lookup(f.name)
		if fl == nil || !fl.Changed {
			continue
		}
		*f.dst = fl.Value.String()
	}
	if fl := cmd.Flags().Lookup("jobs"); fl != nil && fl.Changed {
		jobs, err := cmd.Flags().GetInt("jobs")
		if err != nil {
			return err
		}
		cfg.Emit.Jobs = jobs
	}
	return nil
}
