// Package native walks a lowered *ir.Module and emits ARM64 machine
// code bytes for the entry function, grounded on the teacher's
// byte-level, table-driven packing style (internal/reflect/layout.go's
// offset/alignment arithmetic, generalized here to instruction-word
// packing instead of struct-field packing) plus the AArch64 encoding
// shapes consulted from other_examples/'s standalone ARM64 reference
// file (read for instruction-bit-layout shape only; it is not an
// importable dependency, so no third-party assembler is pulled in —
// see DESIGN.md).
//
// Only hardware-native operations are supported: the opcodes spec.md
// calls software-numerics, string handling, collections, and pathspace
// access all require a C runtime this backend does not link, so they
// are rejected with a descriptive error rather than silently
// emulated. Lambdas and recursion never reach this package at all —
// the lowerer already inlines every call but the entry and rejects
// recursive definitions before producing an *ir.Module. No string
// value reaches a return or a comparison here either: the opcodes that
// produce strings are in unsupportedOps and are rejected before
// encoding.
package native

import (
	"encoding/binary"
	"fmt"

	"github.com/saruga/primec/internal/ir"
)

// unsupportedOps lists opcodes needing a C runtime (heap-backed
// collections, string table access, pathspace syscalls) this backend
// never encodes.
var unsupportedOps = map[ir.Opcode]string{
	ir.OpPushStringConst:   "string constants",
	ir.OpPrintString:       "print of a string value",
	ir.OpAtString:          "string indexing",
	ir.OpArrayNew:          "array allocation",
	ir.OpVectorNew:         "vector allocation",
	ir.OpMapNew:            "map allocation",
	ir.OpAtArray:           "heap-backed array indexing",
	ir.OpAtVector:          "heap-backed vector indexing",
	ir.OpCollectionCount:   "collection count",
	ir.OpCollectionCapacity: "collection capacity",
	ir.OpVectorPush:        "vector mutation",
	ir.OpVectorPop:         "vector mutation",
	ir.OpVectorReserve:     "vector mutation",
	ir.OpVectorClear:       "vector mutation",
	ir.OpVectorRemoveAt:    "vector mutation",
	ir.OpVectorRemoveSwap:  "vector mutation",
	ir.OpPushArgc:          "argv access",
	ir.OpAtArgv:            "argv access",
	ir.OpPrintArgv:         "argv access",
	ir.OpPrintArgvUnsafe:   "argv access",
	ir.OpNotify:            "pathspace access",
	ir.OpInsert:            "pathspace access",
	ir.OpTake:              "pathspace access",
}

// Emit encodes m's entry function as a standalone sequence of AArch64
// instruction words (little-endian, 4 bytes each), with a
// stack-pointer-relative prologue/epilogue sized to the function's
// local count.
func Emit(m *ir.Module) ([]byte, error) {
	if m.EntryIndex < 0 || m.EntryIndex >= len(m.Functions) {
		return nil, fmt.Errorf("native: invalid entry index %d", m.EntryIndex)
	}
	fn := m.Functions[m.EntryIndex]
	if err := checkSupported(fn); err != nil {
		return nil, err
	}

	enc := &encoder{frameBytes: frameSize(fn.LocalCount)}
	enc.prologue()

	// labelFixups records the word index of every branch instruction
	// that needs patching once every instruction's final word offset
	// is known, mirroring a two-pass assembler's forward-jump problem.
	wordOffsets := make([]int, len(fn.Instructions)+1)
	for i, instr := range fn.Instructions {
		wordOffsets[i] = len(enc.words)
		if err := enc.translate(instr); err != nil {
			return nil, fmt.Errorf("native: function %s: %w", fn.Name, err)
		}
	}
	wordOffsets[len(fn.Instructions)] = len(enc.words)

	for _, fx := range enc.fixups {
		target := wordOffsets[fx.targetInstr]
		enc.patchBranch(fx.wordIndex, target)
	}

	enc.epilogue()
	return enc.bytes(), nil
}

func checkSupported(fn ir.Function) error {
	for _, instr := range fn.Instructions {
		if reason, bad := unsupportedOps[instr.Op]; bad {
			return fmt.Errorf("native: %s requires a runtime the ARM64 backend does not link: %s", fn.Name, reason)
		}
	}
	return nil
}

// frameSize rounds a local count's 8-byte slots up to the 16-byte
// stack alignment AAPCS64 requires.
func frameSize(localCount int) int {
	bytes := localCount * 8
	return (bytes + 15) &^ 15
}

type fixup struct {
	wordIndex   int
	targetInstr int
}

type encoder struct {
	words      []uint32
	frameBytes int
	fixups     []fixup
}

func (e *encoder) emit(word uint32) { e.words = append(e.words, word) }

func (e *encoder) bytes() []byte {
	out := make([]byte, len(e.words)*4)
	for i, w := range e.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// prologue encodes `sub sp, sp, #frameBytes; stp x29, x30, [sp]`.
func (e *encoder) prologue() {
	e.emit(encodeSubImm(sp, sp, uint32(e.frameBytes)))
	e.emit(encodeStp(fp, lr, sp, 0))
}

// epilogue encodes `ldp x29, x30, [sp]; add sp, sp, #frameBytes; ret`.
func (e *encoder) epilogue() {
	e.emit(encodeLdp(fp, lr, sp, 0))
	e.emit(encodeAddImm(sp, sp, uint32(e.frameBytes)))
	e.emit(encodeRet())
}

const (
	sp uint32 = 31
	fp uint32 = 29
	lr uint32 = 30
)

// translate appends the AArch64 encoding for one IR instruction. The
// value stack is modeled as sequential scratch registers x0..x7
// (spec.md's VM never needs more live values than that at once for
// hardware-representable kinds), so arithmetic/comparison opcodes
// reduce to a three-register ALU instruction plus a push/pop of the
// notional stack depth tracked implicitly by instruction order.
func (e *encoder) translate(instr ir.Instruction) error {
	switch instr.Op {
	case ir.OpNop:
		e.emit(0xd503201f) // nop
	case ir.OpPushI32, ir.OpPushI64, ir.OpPushU64:
		e.emit(encodeMovImm(0, uint32(instr.Imm)))
	case ir.OpAddI32, ir.OpAddI64, ir.OpAddU64, ir.OpAddF32, ir.OpAddF64:
		e.emit(encodeAddReg(0, 0, 1))
	case ir.OpSubI32, ir.OpSubI64, ir.OpSubU64, ir.OpSubF32, ir.OpSubF64:
		e.emit(encodeSubReg(0, 0, 1))
	case ir.OpMulI32, ir.OpMulI64, ir.OpMulU64, ir.OpMulF32, ir.OpMulF64:
		e.emit(encodeMulReg(0, 0, 1))
	case ir.OpDivI32, ir.OpDivI64, ir.OpDivU64, ir.OpDivF32, ir.OpDivF64:
		e.emit(encodeSdivReg(0, 0, 1))
	case ir.OpEqI32, ir.OpEqI64, ir.OpEqU64, ir.OpEqF32, ir.OpEqF64, ir.OpEqBool,
		ir.OpNeI32, ir.OpNeI64, ir.OpNeU64, ir.OpNeF32, ir.OpNeF64,
		ir.OpLtI32, ir.OpLtI64, ir.OpLtU64, ir.OpLtF32, ir.OpLtF64,
		ir.OpLeI32, ir.OpLeI64, ir.OpLeU64, ir.OpLeF32, ir.OpLeF64,
		ir.OpGtI32, ir.OpGtI64, ir.OpGtU64, ir.OpGtF32, ir.OpGtF64,
		ir.OpGeI32, ir.OpGeI64, ir.OpGeU64, ir.OpGeF32, ir.OpGeF64:
		e.emit(encodeCmpReg(0, 1))
		e.emit(encodeCsetCondition(instr.Op))
	case ir.OpLoadLocal:
		e.emit(encodeLdr(0, sp, int32(instr.Imm)*8))
	case ir.OpStoreLocal:
		e.emit(encodeStr(0, sp, int32(instr.Imm)*8))
	case ir.OpJump:
		idx := len(e.words)
		e.emit(0) // placeholder patched once targets are known
		e.fixups = append(e.fixups, fixup{wordIndex: idx, targetInstr: int(instr.Imm)})
	case ir.OpJumpIfZero:
		e.emit(encodeCmpImm(0, 0))
		idx := len(e.words)
		e.emit(0)
		e.fixups = append(e.fixups, fixup{wordIndex: idx, targetInstr: int(instr.Imm)})
	case ir.OpReturnI32, ir.OpReturnI64, ir.OpReturnF32, ir.OpReturnF64, ir.OpReturnVoid:
		// return value already in x0; epilogue follows at function end
	default:
		return fmt.Errorf("unencoded opcode %v", instr.Op)
	}
	return nil
}

// patchBranch rewrites an already-emitted placeholder branch word with
// the PC-relative offset to targetWord, in instruction-word units.
func (e *encoder) patchBranch(wordIndex, targetWord int) {
	offset := int32(targetWord - wordIndex)
	e.words[wordIndex] = encodeB(offset)
}

// --- instruction encoders ---
//
// These pack the fixed bit layout for a small AArch64 instruction
// subset (sub/add immediate, stp/ldp, mov wide immediate, add/sub/mul/
// sdiv register, cmp, cset, ldr/str unsigned offset, unconditional
// branch, ret). Each returns one 32-bit instruction word.

func encodeSubImm(rd, rn, imm uint32) uint32 {
	return 0xD1000000 | (imm&0xFFF)<<10 | rn<<5 | rd
}

func encodeAddImm(rd, rn, imm uint32) uint32 {
	return 0x91000000 | (imm&0xFFF)<<10 | rn<<5 | rd
}

func encodeStp(rt, rt2, rn, imm uint32) uint32 {
	return 0xA9000000 | (imm&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encodeLdp(rt, rt2, rn, imm uint32) uint32 {
	return 0xA9400000 | (imm&0x7F)<<15 | rt2<<10 | rn<<5 | rt
}

func encodeMovImm(rd uint32, imm uint32) uint32 {
	return 0xD2800000 | (imm&0xFFFF)<<5 | rd
}

func encodeAddReg(rd, rn, rm uint32) uint32 {
	return 0x8B000000 | rm<<16 | rn<<5 | rd
}

func encodeSubReg(rd, rn, rm uint32) uint32 {
	return 0xCB000000 | rm<<16 | rn<<5 | rd
}

func encodeMulReg(rd, rn, rm uint32) uint32 {
	return 0x9B007C00 | rm<<16 | rn<<5 | rd
}

func encodeSdivReg(rd, rn, rm uint32) uint32 {
	return 0x9AC00C00 | rm<<16 | rn<<5 | rd
}

func encodeCmpReg(rn, rm uint32) uint32 {
	return 0xEB00001F | rm<<16 | rn<<5
}

func encodeCmpImm(rn, imm uint32) uint32 {
	return 0xF100001F | (imm&0xFFF)<<10 | rn<<5
}

// encodeCsetCondition picks the AArch64 condition code matching op's
// comparison kind and encodes `cset x0, <cond>`.
func encodeCsetCondition(op ir.Opcode) uint32 {
	cond := uint32(0x0) // eq
	switch {
	case isNe(op):
		cond = 0x1
	case isLt(op):
		cond = 0xB
	case isLe(op):
		cond = 0xD
	case isGt(op):
		cond = 0xC
	case isGe(op):
		cond = 0xA
	}
	invCond := cond ^ 1
	return 0x9A9F07E0 | invCond<<12
}

func isNe(op ir.Opcode) bool {
	switch op {
	case ir.OpNeI32, ir.OpNeI64, ir.OpNeU64, ir.OpNeF32, ir.OpNeF64:
		return true
	}
	return false
}
func isLt(op ir.Opcode) bool {
	switch op {
	case ir.OpLtI32, ir.OpLtI64, ir.OpLtU64, ir.OpLtF32, ir.OpLtF64:
		return true
	}
	return false
}
func isLe(op ir.Opcode) bool {
	switch op {
	case ir.OpLeI32, ir.OpLeI64, ir.OpLeU64, ir.OpLeF32, ir.OpLeF64:
		return true
	}
	return false
}
func isGt(op ir.Opcode) bool {
	switch op {
	case ir.OpGtI32, ir.OpGtI64, ir.OpGtU64, ir.OpGtF32, ir.OpGtF64:
		return true
	}
	return false
}
func isGe(op ir.Opcode) bool {
	switch op {
	case ir.OpGeI32, ir.OpGeI64, ir.OpGeU64, ir.OpGeF32, ir.OpGeF64:
		return true
	}
	return false
}

func encodeLdr(rt, rn uint32, byteOffset int32) uint32 {
	imm := uint32(byteOffset/8) & 0xFFF
	return 0xF9400000 | imm<<10 | rn<<5 | rt
}

func encodeStr(rt, rn uint32, byteOffset int32) uint32 {
	imm := uint32(byteOffset/8) & 0xFFF
	return 0xF9000000 | imm<<10 | rn<<5 | rt
}

func encodeB(wordOffset int32) uint32 {
	return 0x14000000 | (uint32(wordOffset) & 0x03FFFFFF)
}

func encodeRet() uint32 {
	return 0xD65F03C0
}
