// Package vm implements the bytecode interpreter that executes an
// ir.Module: a 64-bit value stack, per-function locals, argv access,
// print sink, and the fixed runtime traps (bounds violations, a
// negative integer pow exponent) that exit with code 3. A `loop` with a
// negative count runs zero iterations; no trap is raised for it.
package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/saruga/primec/internal/ir"
)

// Exit codes mandated by the spec's external interface.
const (
	ExitOK      = 0
	ExitHostErr = 2
	ExitTrap    = 3
)

// Trap is a runtime error that aborts execution with exit code 3; its
// Message is written verbatim to stderr.
type Trap struct {
	Message string
}

func (t *Trap) Error() string { return t.Message }

// Machine executes one IrModule. Stdout/Stderr default to os.Stdout/
// os.Stderr but can be redirected for testing.
type Machine struct {
	Stdout io.Writer
	Stderr io.Writer

	module *ir.Module
	stack  []uint64
	locals []uint64
	argv   []string
	// heap holds every array/vector/map allocated by OpArrayNew/
	// OpVectorNew/OpMapNew; a collection value on the stack or in a
	// local is simply its index into heap.
	heap [][]uint64
}

// New creates a Machine bound to module, ready to Execute.
func New(module *ir.Module) *Machine {
	return &Machine{module: module, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Execute runs the module's entry function with the given argv,
// returning the raw 64-bit return value, or an error: a *Trap for a
// runtime trap, any other error for a host error.
func (m *Machine) Execute(argv []string) (result uint64, err error) {
	if m.module.EntryIndex < 0 || m.module.EntryIndex >= len(m.module.Functions) {
		return 0, fmt.Errorf("invalid entry index")
	}
	m.argv = argv
	fn := &m.module.Functions[m.module.EntryIndex]
	m.locals = make([]uint64, fn.LocalCount)
	m.stack = m.stack[:0]
	m.heap = nil
	return m.run(fn)
}

// ExitCode maps an Execute error to the process exit code the driver
// should use.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if _, ok := err.(*Trap); ok {
		return ExitTrap
	}
	return ExitHostErr
}

func (m *Machine) push(v uint64)  { m.stack = append(m.stack, v) }
func (m *Machine) pop() uint64 {
	n := len(m.stack) - 1
	v := m.stack[n]
	m.stack = m.stack[:n]
	return v
}

// allocHeap appends elems as a new heap-resident collection, returning
// its handle (the collection value carried on the stack and in
// locals).
func (m *Machine) allocHeap(elems []uint64) uint64 {
	handle := uint64(len(m.heap))
	m.heap = append(m.heap, elems)
	return handle
}

func (m *Machine) run(fn *ir.Function) (uint64, error) {
	pc := 0
	for pc < len(fn.Instructions) {
		ins := fn.Instructions[pc]
		switch ins.Op {
		case ir.OpPushI32, ir.OpPushI64, ir.OpPushU64, ir.OpPushBool:
			m.push(ins.Imm)
		case ir.OpPushF32, ir.OpPushF64:
			m.push(ins.Imm)
		case ir.OpPushStringConst:
			m.push(ins.Imm)
		case ir.OpPushArgc:
			m.push(uint64(len(m.argv)))

		case ir.OpLoadLocal:
			m.push(m.locals[ins.Imm])
		case ir.OpStoreLocal:
			m.locals[ins.Imm] = m.pop()
		case ir.OpAddressOfLocal:
			m.push(ins.Imm | (1 << 63))
		case ir.OpLoadIndirect:
			addr := m.pop()
			m.push(m.locals[addr&^(1<<63)])
		case ir.OpStoreIndirect:
			v := m.pop()
			addr := m.pop()
			m.locals[addr&^(1<<63)] = v

		case ir.OpAddI32, ir.OpAddI64, ir.OpAddU64, ir.OpAddF32, ir.OpAddF64,
			ir.OpSubI32, ir.OpSubI64, ir.OpSubU64, ir.OpSubF32, ir.OpSubF64,
			ir.OpMulI32, ir.OpMulI64, ir.OpMulU64, ir.OpMulF32, ir.OpMulF64,
			ir.OpDivI32, ir.OpDivI64, ir.OpDivU64, ir.OpDivF32, ir.OpDivF64:
			b := m.pop()
			a := m.pop()
			m.push(binaryArith(ins.Op, a, b))

		case ir.OpNegI32:
			m.push(uint64(uint32(-int32(uint32(m.pop())))))
		case ir.OpNegI64:
			m.push(uint64(-int64(m.pop())))
		case ir.OpNegF32:
			m.push(uint64(math.Float32bits(-math.Float32frombits(uint32(m.pop())))))
		case ir.OpNegF64:
			m.push(math.Float64bits(-math.Float64frombits(m.pop())))

		case ir.OpPowI32, ir.OpPowI64, ir.OpPowF32, ir.OpPowF64:
			b := m.pop()
			a := m.pop()
			v, err := power(ins.Op, a, b)
			if err != nil {
				return 0, m.trap(err.Error())
			}
			m.push(v)

		case ir.OpEqI32, ir.OpEqI64, ir.OpEqU64, ir.OpEqF32, ir.OpEqF64, ir.OpEqBool,
			ir.OpNeI32, ir.OpNeI64, ir.OpNeU64, ir.OpNeF32, ir.OpNeF64,
			ir.OpLtI32, ir.OpLtI64, ir.OpLtU64, ir.OpLtF32, ir.OpLtF64,
			ir.OpLeI32, ir.OpLeI64, ir.OpLeU64, ir.OpLeF32, ir.OpLeF64,
			ir.OpGtI32, ir.OpGtI64, ir.OpGtU64, ir.OpGtF32, ir.OpGtF64,
			ir.OpGeI32, ir.OpGeI64, ir.OpGeU64, ir.OpGeF32, ir.OpGeF64:
			b := m.pop()
			a := m.pop()
			m.push(boolToU64(compare(ins.Op, a, b)))

		case ir.OpAndBool:
			b := m.pop()
			a := m.pop()
			m.push(boolToU64(a != 0 && b != 0))
		case ir.OpOrBool:
			b := m.pop()
			a := m.pop()
			m.push(boolToU64(a != 0 || b != 0))
		case ir.OpNotBool:
			m.push(boolToU64(m.pop() == 0))

		case ir.OpJump:
			pc = int(ins.Imm)
			continue
		case ir.OpJumpIfZero:
			if m.pop() == 0 {
				pc = int(ins.Imm)
				continue
			}

		case ir.OpReturnI32, ir.OpReturnI64, ir.OpReturnF32, ir.OpReturnF64:
			return m.pop(), nil
		case ir.OpReturnVoid:
			return 0, nil

		case ir.OpConvI32ToI64:
			m.push(uint64(int64(int32(uint32(m.pop())))))
		case ir.OpConvI32ToU64:
			m.push(uint64(uint32(m.pop())))
		case ir.OpConvI32ToF32:
			m.push(uint64(math.Float32bits(float32(int32(uint32(m.pop()))))))
		case ir.OpConvI32ToF64:
			m.push(math.Float64bits(float64(int32(uint32(m.pop())))))
		case ir.OpConvI64ToI32:
			m.push(uint64(uint32(int32(int64(m.pop())))))
		case ir.OpConvI64ToU64:
			m.push(m.pop())
		case ir.OpConvI64ToF32:
			m.push(uint64(math.Float32bits(float32(int64(m.pop())))))
		case ir.OpConvI64ToF64:
			m.push(math.Float64bits(float64(int64(m.pop()))))
		case ir.OpConvU64ToI32:
			m.push(uint64(uint32(m.pop())))
		case ir.OpConvU64ToI64:
			m.push(m.pop())
		case ir.OpConvU64ToF32:
			m.push(uint64(math.Float32bits(float32(m.pop()))))
		case ir.OpConvU64ToF64:
			m.push(math.Float64bits(float64(m.pop())))
		case ir.OpConvF32ToF64:
			m.push(math.Float64bits(float64(math.Float32frombits(uint32(m.pop())))))
		case ir.OpConvF32ToI32:
			m.push(uint64(uint32(int32(math.Float32frombits(uint32(m.pop()))))))
		case ir.OpConvF32ToI64:
			m.push(uint64(int64(math.Float32frombits(uint32(m.pop())))))
		case ir.OpConvF64ToF32:
			m.push(uint64(math.Float32bits(float32(math.Float64frombits(m.pop())))))
		case ir.OpConvF64ToI32:
			m.push(uint64(uint32(int32(math.Float64frombits(m.pop())))))
		case ir.OpConvF64ToI64:
			m.push(uint64(int64(math.Float64frombits(m.pop()))))

		case ir.OpArrayNew, ir.OpVectorNew:
			n := int(ins.Imm)
			elems := make([]uint64, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = m.pop()
			}
			m.push(m.allocHeap(elems))
		case ir.OpMapNew:
			n := int(ins.Imm)
			flat := make([]uint64, n)
			for i := n - 1; i >= 0; i-- {
				flat[i] = m.pop()
			}
			m.push(m.allocHeap(flat))

		case ir.OpAtArray, ir.OpAtVector:
			idx := int64(m.pop())
			handle := m.pop()
			elems := m.heap[handle]
			if idx < 0 || idx >= int64(len(elems)) {
				return 0, m.trap("array index out of bounds\n")
			}
			m.push(elems[idx])
		case ir.OpAtString:
			idx := int64(m.pop())
			strIdx := m.pop()
			s := m.module.StringTable[strIdx]
			if idx < 0 || idx >= int64(len(s)) {
				return 0, m.trap("string index out of bounds\n")
			}
			m.push(uint64(s[idx]))
		case ir.OpAtArgv:
			idx := int64(m.pop())
			if idx < 0 || idx >= int64(len(m.argv)) {
				return 0, m.trap("array index out of bounds\n")
			}
			m.push(uint64(idx))
		case ir.OpAtUnsafe:
			idx := m.pop()
			_ = m.pop()
			m.push(idx)
		case ir.OpCollectionCount:
			handle := m.pop()
			m.push(uint64(len(m.heap[handle])))
		case ir.OpCollectionCapacity:
			handle := m.pop()
			m.push(uint64(cap(m.heap[handle])))

		case ir.OpVectorPush:
			v := m.pop()
			handle := m.pop()
			m.heap[handle] = append(m.heap[handle], v)
		case ir.OpVectorPop:
			handle := m.pop()
			if n := len(m.heap[handle]); n > 0 {
				m.heap[handle] = m.heap[handle][:n-1]
			}
		case ir.OpVectorReserve:
			n := m.pop()
			handle := m.pop()
			elems := m.heap[handle]
			if uint64(cap(elems)) < n {
				grown := make([]uint64, len(elems), n)
				copy(grown, elems)
				m.heap[handle] = grown
			}
		case ir.OpVectorClear:
			handle := m.pop()
			m.heap[handle] = m.heap[handle][:0]
		case ir.OpVectorRemoveAt:
			idx := int64(m.pop())
			handle := m.pop()
			elems := m.heap[handle]
			if idx < 0 || idx >= int64(len(elems)) {
				return 0, m.trap("array index out of bounds\n")
			}
			m.heap[handle] = append(elems[:idx], elems[idx+1:]...)
		case ir.OpVectorRemoveSwap:
			idx := int64(m.pop())
			handle := m.pop()
			elems := m.heap[handle]
			if idx < 0 || idx >= int64(len(elems)) {
				return 0, m.trap("array index out of bounds\n")
			}
			last := len(elems) - 1
			elems[idx] = elems[last]
			m.heap[handle] = elems[:last]

		case ir.OpPrintString:
			idx := m.pop()
			_, flags := ir.DecodePrintImm(ins.Imm)
			m.doPrint(m.module.StringTable[idx], flags)
		case ir.OpPrintArgv:
			idx := int64(m.pop())
			if idx < 0 || idx >= int64(len(m.argv)) {
				return 0, m.trap("array index out of bounds\n")
			}
			_, flags := ir.DecodePrintImm(ins.Imm)
			m.doPrint(m.argv[idx], flags)
		case ir.OpPrintArgvUnsafe:
			idx := m.pop()
			_, flags := ir.DecodePrintImm(ins.Imm)
			m.doPrint(m.argv[idx], flags)
		case ir.OpPrintI32:
			v := int32(uint32(m.pop()))
			m.doPrint(fmt.Sprintf("%d", v), ins.Imm)
		case ir.OpPrintI64:
			v := int64(m.pop())
			m.doPrint(fmt.Sprintf("%d", v), ins.Imm)
		case ir.OpPrintU64:
			v := m.pop()
			m.doPrint(fmt.Sprintf("%d", v), ins.Imm)
		case ir.OpPrintBool:
			v := m.pop()
			m.doPrint(fmt.Sprintf("%t", v != 0), ins.Imm)

		case ir.OpNotify, ir.OpInsert, ir.OpTake:
			// pathspace operations are a no-op borrow in this interpreter;
			// the effect check that gates them happens in the validator.
			m.pop()

		default:
			return 0, fmt.Errorf("unimplemented opcode: %d", ins.Op)
		}
		pc++
	}
	return 0, nil
}

func (m *Machine) trap(msg string) *Trap {
	fmt.Fprint(m.Stderr, msg)
	return &Trap{Message: msg}
}

func (m *Machine) doPrint(s string, flags uint64) {
	w := m.Stdout
	if flags&ir.PrintFlagStderr != 0 {
		w = m.Stderr
	}
	fmt.Fprint(w, s)
	if flags&ir.PrintFlagNewline != 0 {
		fmt.Fprint(w, "\n")
	}
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
