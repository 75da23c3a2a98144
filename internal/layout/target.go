package layout

import (
	"fmt"
	"strings"
)

// Arch is the target instruction set.
type Arch uint8

const (
	ArchX86_64 Arch = iota
	ArchAarch64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchAarch64:
		return "aarch64"
	default:
		return fmt.Sprintf("Arch(%d)", a)
	}
}

// OS is the target operating system.
type OS uint8

const (
	OSLinux OS = iota
	OSMacOS
	OSWindows
	OSNone
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSMacOS:
		return "macos"
	case OSWindows:
		return "windows"
	case OSNone:
		return "none"
	default:
		return fmt.Sprintf("OS(%d)", o)
	}
}

// Runtime selects the runtime flavor linked into the output.
type Runtime uint8

const (
	RuntimeNative Runtime = iota
	RuntimeNoStd
)

func (r Runtime) String() string {
	if r == RuntimeNoStd {
		return "nostd"
	}
	return "native"
}

// Target describes the compilation target and its pointer properties.
type Target struct {
	Arch     Arch
	OS       OS
	Runtime  Runtime
	PtrSize  int // bytes
	PtrAlign int // bytes
}

func X86_64LinuxGNU() Target {
	return Target{Arch: ArchX86_64, OS: OSLinux, PtrSize: 8, PtrAlign: 8}
}

func Aarch64LinuxGNU() Target {
	return Target{Arch: ArchAarch64, OS: OSLinux, PtrSize: 8, PtrAlign: 8}
}

func X86_64Windows() Target {
	return Target{Arch: ArchX86_64, OS: OSWindows, PtrSize: 8, PtrAlign: 8}
}

// ParseTarget builds a Target from textual arch/os/runtime names. Empty
// strings select the x86_64 linux native default.
func ParseTarget(arch, osName, runtime string) (Target, error) {
	t := X86_64LinuxGNU()
	switch strings.ToLower(arch) {
	case "", "x86_64", "amd64", "x64":
		t.Arch = ArchX86_64
	case "aarch64", "arm64":
		t.Arch = ArchAarch64
	default:
		return Target{}, fmt.Errorf("unsupported target arch %q", arch)
	}
	switch strings.ToLower(osName) {
	case "", "linux":
		t.OS = OSLinux
	case "macos", "darwin":
		t.OS = OSMacOS
	case "windows":
		t.OS = OSWindows
	case "none":
		t.OS = OSNone
	default:
		return Target{}, fmt.Errorf("unsupported target os %q", osName)
	}
	switch strings.ToLower(runtime) {
	case "", "native":
		t.Runtime = RuntimeNative
	case "nostd", "no_std":
		t.Runtime = RuntimeNoStd
	default:
		return Target{}, fmt.Errorf("unsupported runtime flavor %q", runtime)
	}
	return t, nil
}

// Triple returns the LLVM target triple.
func (t Target) Triple() string {
	switch t.OS {
	case OSMacOS:
		if t.Arch == ArchAarch64 {
			return "arm64-apple-darwin"
		}
		return "x86_64-apple-darwin"
	case OSWindows:
		return t.Arch.String() + "-pc-windows-msvc"
	case OSNone:
		return t.Arch.String() + "-unknown-none"
	default:
		return t.Arch.String() + "-unknown-linux-gnu"
	}
}

// WordBits is the bit width of the platform word-sized integer.
func (t Target) WordBits() int {
	if t.PtrSize <= 0 {
		return 64
	}
	return t.PtrSize * 8
}

func (t Target) String() string {
	return fmt.Sprintf("%s (%s)", t.Triple(), t.Runtime)
}
