package diag

import "fmt"

type Note struct {
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Func is the qualified name of the function the finding belongs to.
	// Module-level findings leave it empty.
	Func  string
	Notes []Note
}

func New(sev Severity, code Code, fn, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Func:     fn,
		Message:  msg,
	}
}

func NewError(code Code, fn, msg string) Diagnostic {
	return New(SevError, code, fn, msg)
}

func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Msg: msg})
	return d
}

// String renders the diagnostic on one line without color.
func (d Diagnostic) String() string {
	if d.Func == "" {
		return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code.ID(), d.Message)
	}
	return fmt.Sprintf("%s[%s] in `%s`: %s", d.Severity, d.Code.ID(), d.Func, d.Message)
}
