package native

import (
	"testing"

	"github.com/saruga/primec/internal/ir"
)

func TestEmitSimpleArithmeticFunction(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Functions: []ir.Function{
			{
				Name: "/main",
				Instructions: []ir.Instruction{
					{Op: ir.OpPushI32, Imm: 1},
					{Op: ir.OpPushI32, Imm: 2},
					{Op: ir.OpAddI32},
					{Op: ir.OpReturnI32},
				},
				LocalCount: 0,
			},
		},
	}
	code, err := Emit(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code)%4 != 0 {
		t.Fatalf("expected a whole number of 4-byte instruction words, got %d bytes", len(code))
	}
	if len(code) == 0 {
		t.Fatal("expected non-empty machine code")
	}
}

func TestEmitRejectsStringConstant(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Functions: []ir.Function{
			{
				Name: "/main",
				Instructions: []ir.Instruction{
					{Op: ir.OpPushStringConst, Imm: 0},
					{Op: ir.OpPrintString},
				},
			},
		},
	}
	_, err := Emit(m)
	if err == nil {
		t.Fatal("expected an error for string constant, which needs a runtime this backend does not link")
	}
}

func TestEmitRejectsVectorMutation(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Functions: []ir.Function{
			{Name: "/main", Instructions: []ir.Instruction{{Op: ir.OpVectorPush}}},
		},
	}
	_, err := Emit(m)
	if err == nil {
		t.Fatal("expected an error for vector mutation")
	}
}

func TestEmitWithBranchPatchesOffset(t *testing.T) {
	m := &ir.Module{
		EntryIndex: 0,
		Functions: []ir.Function{
			{
				Name: "/main",
				Instructions: []ir.Instruction{
					{Op: ir.OpPushI32, Imm: 0},
					{Op: ir.OpJumpIfZero, Imm: 3},
					{Op: ir.OpPushI32, Imm: 1},
					{Op: ir.OpReturnI32},
				},
			},
		},
	}
	code, err := Emit(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) == 0 {
		t.Fatal("expected non-empty machine code")
	}
}

func TestEmitInvalidEntryIndex(t *testing.T) {
	m := &ir.Module{EntryIndex: 5, Functions: nil}
	_, err := Emit(m)
	if err == nil {
		t.Fatal("expected an error for an out-of-range entry index")
	}
}
