package mir

// ProjKind enumerates place projection steps.
type ProjKind uint8

const (
	// ProjField selects a field by declaration index.
	ProjField ProjKind = iota
	// ProjFieldNamed selects a field by name.
	ProjFieldNamed
	ProjDeref
	// ProjIndex indexes a sequence by the value of Proj.Local.
	ProjIndex
)

var projKindNames = []string{
	ProjField:      "field",
	ProjFieldNamed: "field_named",
	ProjDeref:      "deref",
	ProjIndex:      "index",
}

func (k ProjKind) String() string                { return enumString(k, projKindNames, "ProjKind") }
func (k ProjKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *ProjKind) UnmarshalText(b []byte) error { return parseEnum(k, b, projKindNames, "projection") }

type Proj struct {
	Kind  ProjKind `json:"kind" yaml:"kind" msgpack:"kind"`
	Index int      `json:"index,omitempty" yaml:"index,omitempty" msgpack:"index,omitempty"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`
	Local LocalID  `json:"local,omitempty" yaml:"local,omitempty" msgpack:"local,omitempty"`
}

// Place is a local plus a projection chain.
type Place struct {
	Local LocalID `json:"local" yaml:"local" msgpack:"local"`
	Proj  []Proj  `json:"proj,omitempty" yaml:"proj,omitempty" msgpack:"proj,omitempty"`
}

// LocalPlace returns a place naming local id with no projections.
func LocalPlace(id LocalID) Place { return Place{Local: id} }

// IsBare reports whether the place has no projections.
func (p Place) IsBare() bool { return len(p.Proj) == 0 }

// Field appends a by-index field projection.
func (p Place) Field(idx int) Place { return p.with(Proj{Kind: ProjField, Index: idx}) }

// FieldNamed appends a by-name field projection.
func (p Place) FieldNamed(name string) Place { return p.with(Proj{Kind: ProjFieldNamed, Name: name}) }

// Deref appends a dereference.
func (p Place) Deref() Place { return p.with(Proj{Kind: ProjDeref}) }

// Index appends a dynamic index by the value of local.
func (p Place) Index(local LocalID) Place { return p.with(Proj{Kind: ProjIndex, Local: local}) }

func (p Place) with(proj Proj) Place {
	out := Place{Local: p.Local, Proj: make([]Proj, len(p.Proj), len(p.Proj)+1)}
	copy(out.Proj, p.Proj)
	out.Proj = append(out.Proj, proj)
	return out
}
