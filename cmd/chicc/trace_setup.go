package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chic-lang/Chic-sub009/internal/driver"
	"github.com/Chic-lang/Chic-sub009/internal/trace"
)

// setupTracing builds the tracer described by cfg and the trace-mode
// flags, and attaches it to the command context. The cleanup dumps the
// ring buffer when failed is set.
func setupTracing(cmd *cobra.Command, cfg driver.TraceConfig) (trace.Tracer, func(failed bool), error) {
	pf := cmd.Root().PersistentFlags()
	level, err := trace.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return trace.Nop, func(bool) {}, nil
	}
	format, err := trace.ParseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}
	modeStr, err := pf.GetString("trace-mode")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	ringSize, err := pf.GetInt("trace-ring-size")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := pf.GetDuration("trace-heartbeat")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	tcfg := trace.Config{
		Level:     level,
		Mode:      mode,
		Format:    format,
		RingSize:  ringSize,
		Heartbeat: heartbeatInterval,
	}
	switch cfg.Output {
	case "", "-", "stderr":
		tcfg.Output = os.Stderr
	case "stdout":
		tcfg.Output = os.Stdout
	default:
		tcfg.OutputPath = cfg.Output
	}
	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	heartbeat := trace.StartHeartbeat(tracer, heartbeatInterval)
	cleanup := func(failed bool) {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if ring := trace.RingOf(tracer); failed && ring != nil {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
