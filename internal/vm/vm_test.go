package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saruga/primec/internal/ir"
)

func TestExecuteLiteralReturn(t *testing.T) {
	mod := &ir.Module{
		Functions: []ir.Function{{
			Name: "/main",
			Instructions: []ir.Instruction{
				{Op: ir.OpPushI32, Imm: 3},
				{Op: ir.OpReturnI32},
			},
		}},
	}
	m := New(mod)
	result, err := m.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result)
}

func TestExecuteArithmetic(t *testing.T) {
	mod := &ir.Module{
		Functions: []ir.Function{{
			Instructions: []ir.Instruction{
				{Op: ir.OpPushI32, Imm: 1},
				{Op: ir.OpPushI32, Imm: 2},
				{Op: ir.OpAddI32},
				{Op: ir.OpReturnI32},
			},
		}},
	}
	m := New(mod)
	result, err := m.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result)
}

func TestExecuteOutOfBoundsTraps(t *testing.T) {
	mod := &ir.Module{
		Functions: []ir.Function{{
			Instructions: []ir.Instruction{
				{Op: ir.OpPushI32, Imm: 1},
				{Op: ir.OpPushI32, Imm: 2},
				{Op: ir.OpPushI32, Imm: 3},
				{Op: ir.OpPushI32, Imm: 4},
				{Op: ir.OpArrayNew, Imm: 4}, // four-element array handle
				{Op: ir.OpPushI32, Imm: 9},  // index
				{Op: ir.OpAtArray},
				{Op: ir.OpReturnI32},
			},
		}},
	}
	var stderr bytes.Buffer
	m := New(mod)
	m.Stderr = &stderr
	_, err := m.Execute(nil)
	require.Error(t, err)
	assert.Equal(t, ExitTrap, ExitCode(err))
	assert.Equal(t, "array index out of bounds\n", stderr.String())
}

func TestExecutePrintLine(t *testing.T) {
	mod := &ir.Module{
		StringTable: []string{"alpha"},
		Functions: []ir.Function{{
			Instructions: []ir.Instruction{
				{Op: ir.OpPushStringConst, Imm: 0},
				{Op: ir.OpPrintString, Imm: ir.EncodePrintImm(0, ir.PrintFlagNewline)},
				{Op: ir.OpPushI32, Imm: 0},
				{Op: ir.OpReturnI32},
			},
		}},
	}
	var stdout bytes.Buffer
	m := New(mod)
	m.Stdout = &stdout
	result, err := m.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result)
	assert.Equal(t, "alpha\n", stdout.String())
}

func TestExecuteNegativePowExponentTraps(t *testing.T) {
	mod := &ir.Module{
		Functions: []ir.Function{{
			Instructions: []ir.Instruction{
				{Op: ir.OpPushI32, Imm: 2},
				{Op: ir.OpPushI32, Imm: uint64(uint32(int32(-1)))},
				{Op: ir.OpPowI32},
				{Op: ir.OpReturnI32},
			},
		}},
	}
	m := New(mod)
	_, err := m.Execute(nil)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitTrap, ExitCode(&Trap{Message: "x"}))
}
