package mir

type StmtKind uint8

const (
	StmtAssign StmtKind = iota
	StmtStorageLive
	StmtStorageDead
	StmtNop
)

var stmtKindNames = []string{
	StmtAssign:      "assign",
	StmtStorageLive: "storage_live",
	StmtStorageDead: "storage_dead",
	StmtNop:         "nop",
}

func (k StmtKind) String() string                { return enumString(k, stmtKindNames, "StmtKind") }
func (k StmtKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *StmtKind) UnmarshalText(b []byte) error { return parseEnum(k, b, stmtKindNames, "statement") }

type Statement struct {
	Kind   StmtKind   `json:"kind" yaml:"kind" msgpack:"kind"`
	Assign AssignStmt `json:"assign,omitempty" yaml:"assign,omitempty" msgpack:"assign,omitempty"`
	// Local is the subject of storage markers.
	Local LocalID `json:"local,omitempty" yaml:"local,omitempty" msgpack:"local,omitempty"`
}

type AssignStmt struct {
	Place Place  `json:"place" yaml:"place" msgpack:"place"`
	Value Rvalue `json:"value" yaml:"value" msgpack:"value"`
}

// Assign builds an assignment statement.
func Assign(dst Place, rv Rvalue) Statement {
	return Statement{Kind: StmtAssign, Assign: AssignStmt{Place: dst, Value: rv}}
}

type Block struct {
	ID    BlockID     `json:"id" yaml:"id" msgpack:"id"`
	Stmts []Statement `json:"stmts,omitempty" yaml:"stmts,omitempty" msgpack:"stmts,omitempty"`
	Term  Terminator  `json:"term" yaml:"term" msgpack:"term"`
}
