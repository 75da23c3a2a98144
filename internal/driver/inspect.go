package driver

import (
	"io"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Chic-lang/Chic-sub009/internal/backend/llvm"
)

// SignatureRow is one lowered signature as `chicc sigs` prints it.
type SignatureRow struct {
	Name     string `json:"name" msgpack:"name"`
	Symbol   string `json:"symbol,omitempty" msgpack:"symbol,omitempty"`
	Decl     string `json:"decl,omitempty" msgpack:"decl,omitempty"`
	Sret     bool   `json:"sret,omitempty" msgpack:"sret,omitempty"`
	Variadic bool   `json:"variadic,omitempty" msgpack:"variadic,omitempty"`
	Weak     bool   `json:"weak,omitempty" msgpack:"weak,omitempty"`
	Library  string `json:"library,omitempty" msgpack:"library,omitempty"`
	Error    string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// TypeRow is one layout with its mapped representation.
type TypeRow struct {
	Name  string `json:"name" msgpack:"name"`
	Kind  string `json:"kind" msgpack:"kind"`
	Size  int    `json:"size" msgpack:"size"`
	Align int    `json:"align" msgpack:"align"`
	Repr  string `json:"repr,omitempty" msgpack:"repr,omitempty"`
	Error string `json:"error,omitempty" msgpack:"error,omitempty"`
}

func (in *Inputs) mapper() (*llvm.TypeMapper, error) {
	target, err := in.Config.TargetDesc()
	if err != nil {
		return nil, err
	}
	tbl, err := in.Module.BuildLayouts(target)
	if err != nil {
		return nil, err
	}
	return llvm.NewTypeMapper(tbl, in.Config.Emit.ErasePlaceholders), nil
}

// Signatures lowers every function of the module, listing failures with
// their error, in name order.
func Signatures(in *Inputs) ([]SignatureRow, error) {
	m, err := in.mapper()
	if err != nil {
		return nil, err
	}
	table := llvm.BuildSignatures(in.Module, m)
	var rows []SignatureRow
	for _, sig := range table.All() {
		row := SignatureRow{
			Name:     sig.Name,
			Symbol:   sig.Symbol,
			Decl:     sig.Decl(),
			Sret:     sig.HasSret(),
			Variadic: sig.Variadic,
			Weak:     sig.Weak,
		}
		if sig.Dynamic != nil {
			row.Library = sig.Dynamic.Library
		}
		rows = append(rows, row)
	}
	for name, ferr := range table.Failures() {
		d := ErrorDiagnostic(ferr)
		rows = append(rows, SignatureRow{Name: name, Error: d.Code.ID() + ": " + d.Message})
	}
	slices.SortFunc(rows, func(a, b SignatureRow) int { return strings.Compare(a.Name, b.Name) })
	return rows, nil
}

// Types maps every layout of the module, including the builtin ones.
func Types(in *Inputs) ([]TypeRow, error) {
	m, err := in.mapper()
	if err != nil {
		return nil, err
	}
	tbl := m.Layouts()
	var rows []TypeRow
	for _, name := range tbl.Names() {
		l, ok := tbl.Exact(name)
		if !ok {
			continue
		}
		row := TypeRow{Name: name, Kind: l.Kind.String(), Size: l.Size, Align: l.Align}
		repr, err := m.MapLayout(l)
		if err != nil {
			d := ErrorDiagnostic(err)
			row.Error = d.Code.ID() + ": " + d.Message
		} else {
			row.Repr = repr
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteMsgpack dumps rows in the binary interchange encoding.
func WriteMsgpack[T SignatureRow | TypeRow](w io.Writer, rows []T) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc.Encode(rows)
}
