package driver

import (
	"context"
	"errors"
	"io/fs"

	"golang.org/x/sync/errgroup"

	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/mir"
)

// InputError is a failure to read or decode an input file.
type InputError struct {
	Code diag.Code
	Path string
	Err  error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// Inputs are a decoded module and the configuration it compiles under.
type Inputs struct {
	Path   string
	Module *mir.Module
	Config Config
}

// LoadInputs decodes the module and reads the configuration concurrently.
func LoadInputs(ctx context.Context, modulePath, configPath string) (*Inputs, error) {
	in := &Inputs{Path: modulePath}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := LoadModule(modulePath)
		if err != nil {
			return err
		}
		in.Module = m
		return nil
	})
	g.Go(func() error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return &InputError{Code: diag.IOConfigInvalid, Path: configPath, Err: err}
		}
		in.Config = cfg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// LoadModule decodes the MIR module at path, picking the codec from the
// extension.
func LoadModule(path string) (*mir.Module, error) {
	m, err := mir.ReadFile(path)
	if err == nil {
		return m, nil
	}
	code := diag.IODecodeFailed
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		code = diag.IOReadFailed
	}
	return nil, &InputError{Code: code, Path: path, Err: err}
}
