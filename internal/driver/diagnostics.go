package driver

import (
	"errors"

	"github.com/Chic-lang/Chic-sub009/internal/backend/llvm"
	"github.com/Chic-lang/Chic-sub009/internal/diag"
	"github.com/Chic-lang/Chic-sub009/internal/layout"
)

var kindCodes = map[llvm.ErrorKind]diag.Code{
	llvm.ErrInternal:              diag.CGInternal,
	llvm.ErrUnknownType:           diag.CGUnknownType,
	llvm.ErrMissingLayout:         diag.CGMissingLayout,
	llvm.ErrArity:                 diag.CGArity,
	llvm.ErrUnsupportedProjection: diag.CGUnsupportedProjection,
	llvm.ErrUnionType:             diag.CGUnionType,
	llvm.ErrMissingSignature:      diag.CGMissingSignature,
	llvm.ErrABIMismatch:           diag.CGABIMismatch,
	llvm.ErrSimdElement:           diag.CGSimdElement,
}

// CodeFor maps a backend error kind to its diagnostic code.
func CodeFor(kind llvm.ErrorKind) diag.Code {
	if code, ok := kindCodes[kind]; ok {
		return code
	}
	return diag.CGInternal
}

// ErrorDiagnostic converts any driver or backend error into a diagnostic.
func ErrorDiagnostic(err error) diag.Diagnostic {
	var (
		inErr  *InputError
		be     *llvm.Error
		layErr *layout.LayoutError
	)
	switch {
	case errors.As(err, &inErr):
		d := diag.NewError(inErr.Code, "", inErr.Err.Error())
		if inErr.Path != "" {
			d = d.WithNote("input: " + inErr.Path)
		}
		return d
	case errors.As(err, &be):
		d := diag.NewError(CodeFor(be.Kind), be.Func, be.Detail())
		if errors.As(be, &layErr) {
			d = d.WithNote("layout: " + layErr.Error())
		}
		return d
	case errors.As(err, &layErr):
		return diag.NewError(diag.LayInvalidModule, "", layErr.Error())
	}
	return diag.NewError(diag.UnknownCode, "", err.Error())
}

// Report adds one diagnostic per function failure of out, plus err when
// it is not already covered by them.
func Report(r diag.Reporter, out *llvm.Output, err error) {
	if out == nil {
		if err != nil {
			r.Report(ErrorDiagnostic(err))
		}
		return
	}
	for _, fo := range out.Functions {
		if fo.Err != nil {
			r.Report(ErrorDiagnostic(fo.Err))
		}
	}
}
