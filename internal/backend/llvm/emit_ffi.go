package llvm

import (
	"fmt"
	"strings"

	"github.com/Chic-lang/Chic-sub009/internal/mir"
)

// ffiDescriptorType mirrors the runtime's descriptor record:
// library name, symbol name, convention tag, binding tag, optional flag.
const ffiDescriptorType = "%chic_ffi_descriptor"

type ffiBinding struct {
	sig *Signature
	dyn *DynamicBinding
}

type ffiSet struct {
	bindings []ffiBinding
	eager    []string
	// failed holds bindings that cannot be stubbed.
	failed []FunctionOutput
}

func (e *moduleEmitter) collectFFI() *ffiSet {
	set := &ffiSet{}
	for _, sig := range e.sigs.All() {
		if sig.Dynamic == nil || (sig.Func != nil && sig.Func.HasBody()) {
			continue
		}
		if sig.Variadic {
			set.failed = append(set.failed, FunctionOutput{
				Name:   sig.Name,
				Symbol: sig.Symbol,
				Err:    inFunc(sig.Name, errorf(ErrInternal, "dynamic library binding of a variadic function is not supported")),
			})
			continue
		}
		set.bindings = append(set.bindings, ffiBinding{sig: sig, dyn: sig.Dynamic})
		if sig.Dynamic.Binding == mir.BindEager {
			set.eager = append(set.eager, sig.Dynamic.Descriptor)
		}
	}
	return set
}

// runtimeExterns lists the runtime entry points the stubs and the eager
// initialiser call.
func (s *ffiSet) runtimeExterns() map[string]*Signature {
	out := make(map[string]*Signature, 2)
	if len(s.bindings) > 0 {
		out["chic_rt_ffi_resolve"] = runtimeSigs["chic_rt_ffi_resolve"]
	}
	if len(s.eager) > 0 {
		out["chic_rt_ffi_eager_resolve"] = runtimeSigs["chic_rt_ffi_eager_resolve"]
	}
	return out
}

func conventionTag(conv string) uint32 {
	lower := strings.ToLower(conv)
	switch lower {
	case "c", "":
		return 0
	case "system":
		return 1
	case "stdcall":
		return 2
	case "fastcall":
		return 3
	case "vectorcall":
		return 4
	}
	var h uint32
	for i := 0; i < len(lower); i++ {
		h = h*31 + uint32(lower[i])
	}
	return h
}

func bindingTag(b mir.Binding) int {
	if b == mir.BindEager {
		return 2
	}
	return 1
}

func cString(sb *strings.Builder, name, value string) {
	data := append([]byte(value), 0)
	fmt.Fprintf(sb, "@%s = private unnamed_addr constant [%d x i8] %s\n", name, len(data), byteLiteral(data))
}

func (s *ffiSet) emitGlobals(sb *strings.Builder) {
	if len(s.bindings) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s = type { ptr, ptr, i32, i32, i1 }\n\n", ffiDescriptorType)
	for _, b := range s.bindings {
		d := b.dyn
		cString(sb, d.LibGlobal, d.Library)
		cString(sb, d.SymGlobal, d.Foreign)
		optional := 0
		if d.Optional {
			optional = 1
		}
		fmt.Fprintf(sb, "@%s = private constant %s { ptr @%s, ptr @%s, i32 %d, i32 %d, i1 %d }\n",
			d.Descriptor, ffiDescriptorType, d.LibGlobal, d.SymGlobal, conventionTag(d.Convention), bindingTag(d.Binding), optional)
	}
	sb.WriteByte('\n')
}

// emitStubs writes one forwarding body per binding. The stub resolves the
// foreign symbol through its descriptor on every call; the runtime caches.
func (s *ffiSet) emitStubs(sb *strings.Builder) {
	for _, b := range s.bindings {
		sig := b.sig
		fmt.Fprintf(sb, "define %s @%s(%s) {\n", sig.Ret, sig.Symbol, sig.renderParams(true))
		sb.WriteString("entry:\n")
		fmt.Fprintf(sb, "  %%ffi_ptr = call ptr @chic_rt_ffi_resolve(ptr @%s)\n", b.dyn.Descriptor)
		if b.dyn.Optional {
			sb.WriteString("  %ffi_missing = icmp eq ptr %ffi_ptr, null\n")
			sb.WriteString("  br i1 %ffi_missing, label %ffi_optional, label %ffi_invoke\n")
			sb.WriteString("ffi_optional:\n")
			if sig.Ret == "void" {
				sb.WriteString("  ret void\n")
			} else {
				fmt.Fprintf(sb, "  ret %s %s\n", sig.Ret, zeroValue(sig.Ret))
			}
		} else {
			sb.WriteString("  br label %ffi_invoke\n")
		}
		sb.WriteString("ffi_invoke:\n")
		args := sig.renderParams(true)
		if sig.Ret == "void" {
			fmt.Fprintf(sb, "  call void %%ffi_ptr(%s)\n", args)
			sb.WriteString("  ret void\n")
		} else {
			fmt.Fprintf(sb, "  %%ffi_result = call %s %%ffi_ptr(%s)\n", sig.Ret, args)
			fmt.Fprintf(sb, "  ret %s %%ffi_result\n", sig.Ret)
		}
		sb.WriteString("}\n\n")
	}
}

const ffiInitSymbol = "__chic_ffi_eager_init"

// emitCtors resolves eager bindings at load time.
func (s *ffiSet) emitCtors(sb *strings.Builder) {
	if len(s.eager) == 0 {
		return
	}
	fmt.Fprintf(sb, "define internal void @%s() {\n", ffiInitSymbol)
	sb.WriteString("entry:\n")
	for i, desc := range s.eager {
		fmt.Fprintf(sb, "  %%r%d = call i32 @chic_rt_ffi_eager_resolve(ptr @%s)\n", i, desc)
	}
	sb.WriteString("  ret void\n}\n\n")
	fmt.Fprintf(sb, "@llvm.global_ctors = appending global [1 x { i32, ptr, ptr }] [{ i32, ptr, ptr } { i32 65535, ptr @%s, ptr null }]\n", ffiInitSymbol)
}
