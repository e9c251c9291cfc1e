package main

// NBRegs is the number of general-purpose registers the value stack's
// register allocator cycles through, matching original_source/src/tcc.h's
// NB_REGS. Trimmed from teacher reg.go's full x86_64Registers map down to
// the six this core actually allocates plus the fixed RBP/RSP and the four
// Windows x64 argument registers it addresses directly by encoding.
const NBRegs = 6

// Register encodings, ModRM/REX.B-compatible (0-15, REX needed for 8-15).
const (
	RegRAX = 0
	RegRCX = 1
	RegRDX = 2
	RegRBX = 3
	RegRSP = 4
	RegRBP = 5
	RegRSI = 6
	RegRDI = 7
	RegR8  = 8
	RegR9  = 9
)

// Register class bitmask, mirroring original_source/src/tcc.h's RC_*.
type RegClass int

const (
	RCInt RegClass = 1 << iota
	RCRAX
	RCRCX
	RCRDX
)

// allocOrder is the order gv() tries general-purpose registers in when no
// specific class is requested, skipping RSP/RBP which are never allocated
// to hold value-stack entries.
var allocOrder = []int{RegRAX, RegRCX, RegRDX, RegRBX, RegRSI, RegRDI}

// argRegs holds the four Windows x64 integer argument registers in order.
var argRegs = []int{RegRCX, RegRDX, RegR8, RegR9}

var regNames64 = map[int]string{
	RegRAX: "rax", RegRCX: "rcx", RegRDX: "rdx", RegRBX: "rbx",
	RegRSP: "rsp", RegRBP: "rbp", RegRSI: "rsi", RegRDI: "rdi",
	RegR8: "r8", RegR9: "r9",
}

func regName(r int) string {
	if n, ok := regNames64[r]; ok {
		return n
	}
	return "?"
}
