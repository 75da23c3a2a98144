package mir

type TermKind uint8

const (
	TermReturn TermKind = iota
	TermGoto
	TermSwitchInt
	TermCall
	// TermPanic aborts through the runtime panic entry with a fixed code.
	TermPanic
	TermUnreachable
)

var termKindNames = []string{
	TermReturn:      "return",
	TermGoto:        "goto",
	TermSwitchInt:   "switch_int",
	TermCall:        "call",
	TermPanic:       "panic",
	TermUnreachable: "unreachable",
}

func (k TermKind) String() string                { return enumString(k, termKindNames, "TermKind") }
func (k TermKind) MarshalText() ([]byte, error)  { return []byte(k.String()), nil }
func (k *TermKind) UnmarshalText(b []byte) error { return parseEnum(k, b, termKindNames, "terminator") }

type Terminator struct {
	Kind TermKind `json:"kind" yaml:"kind" msgpack:"kind"`

	Goto      GotoTerm      `json:"goto,omitempty" yaml:"goto,omitempty" msgpack:"goto,omitempty"`
	SwitchInt SwitchIntTerm `json:"switch_int,omitempty" yaml:"switch_int,omitempty" msgpack:"switch_int,omitempty"`
	Call      CallTerm      `json:"call,omitempty" yaml:"call,omitempty" msgpack:"call,omitempty"`
	Panic     PanicTerm     `json:"panic,omitempty" yaml:"panic,omitempty" msgpack:"panic,omitempty"`
}

type GotoTerm struct {
	Target BlockID `json:"target" yaml:"target" msgpack:"target"`
}

type SwitchCase struct {
	Value  int64   `json:"value" yaml:"value" msgpack:"value"`
	Target BlockID `json:"target" yaml:"target" msgpack:"target"`
}

type SwitchIntTerm struct {
	Discr     Operand      `json:"discr" yaml:"discr" msgpack:"discr"`
	Cases     []SwitchCase `json:"cases,omitempty" yaml:"cases,omitempty" msgpack:"cases,omitempty"`
	Otherwise BlockID      `json:"otherwise" yaml:"otherwise" msgpack:"otherwise"`
}

type PanicTerm struct {
	Code int32 `json:"code" yaml:"code" msgpack:"code"`
}

// DispatchKind is the call strategy declared by lowering.
type DispatchKind uint8

const (
	DispatchDirect DispatchKind = iota
	// DispatchIndirect calls through a function-typed place.
	DispatchIndirect
	DispatchVirtual
	DispatchTrait
)

var dispatchKindNames = []string{
	DispatchDirect:   "direct",
	DispatchIndirect: "indirect",
	DispatchVirtual:  "virtual",
	DispatchTrait:    "trait",
}

func (k DispatchKind) String() string { return enumString(k, dispatchKindNames, "DispatchKind") }
func (k DispatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
func (k *DispatchKind) UnmarshalText(b []byte) error {
	return parseEnum(k, b, dispatchKindNames, "dispatch")
}

// Dispatch carries the method-table coordinates of a dynamic call.
type Dispatch struct {
	Kind DispatchKind `json:"kind" yaml:"kind" msgpack:"kind"`
	// Receiver is the argument index of the receiver.
	Receiver  int `json:"receiver,omitempty" yaml:"receiver,omitempty" msgpack:"receiver,omitempty"`
	Slot      int `json:"slot,omitempty" yaml:"slot,omitempty" msgpack:"slot,omitempty"`
	SlotCount int `json:"slot_count,omitempty" yaml:"slot_count,omitempty" msgpack:"slot_count,omitempty"`
	// BaseOwner selects a statically known class table for virtual calls.
	BaseOwner string `json:"base_owner,omitempty" yaml:"base_owner,omitempty" msgpack:"base_owner,omitempty"`
	Trait     string `json:"trait,omitempty" yaml:"trait,omitempty" msgpack:"trait,omitempty"`
	// Impl is the concrete implementing type of a trait call when known.
	Impl string `json:"impl,omitempty" yaml:"impl,omitempty" msgpack:"impl,omitempty"`
}

type CallTerm struct {
	Func     Operand   `json:"func" yaml:"func" msgpack:"func"`
	Args     []Operand `json:"args,omitempty" yaml:"args,omitempty" msgpack:"args,omitempty"`
	Dest     *Place    `json:"dest,omitempty" yaml:"dest,omitempty" msgpack:"dest,omitempty"`
	Target   BlockID   `json:"target" yaml:"target" msgpack:"target"`
	Unwind   *BlockID  `json:"unwind,omitempty" yaml:"unwind,omitempty" msgpack:"unwind,omitempty"`
	Dispatch Dispatch  `json:"dispatch,omitempty" yaml:"dispatch,omitempty" msgpack:"dispatch,omitempty"`
}

// Successors returns the blocks control may transfer to.
func (t *Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermGoto:
		return []BlockID{t.Goto.Target}
	case TermSwitchInt:
		out := make([]BlockID, 0, len(t.SwitchInt.Cases)+1)
		for _, c := range t.SwitchInt.Cases {
			out = append(out, c.Target)
		}
		return append(out, t.SwitchInt.Otherwise)
	case TermCall:
		out := []BlockID{t.Call.Target}
		if t.Call.Unwind != nil {
			out = append(out, *t.Call.Unwind)
		}
		return out
	}
	return nil
}
