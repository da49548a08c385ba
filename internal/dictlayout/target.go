package dictlayout

// Target describes the pointer properties of the compilation target.
// A runtime dictionary is a flat array of pointer-sized slots, so the byte
// offset of a slot is slot × PtrSize with no per-entry variable sizing.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:   "aarch64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// ByteOffset converts a slot index to a byte offset within the dictionary.
func (t Target) ByteOffset(slot int) int {
	return slot * t.PtrSize
}

// TargetForTriple returns the known target for a triple string.
func TargetForTriple(triple string) (Target, bool) {
	switch triple {
	case "", "x86_64-linux-gnu":
		return X86_64LinuxGNU(), true
	case "aarch64-linux-gnu":
		return AArch64LinuxGNU(), true
	default:
		return Target{}, false
	}
}
