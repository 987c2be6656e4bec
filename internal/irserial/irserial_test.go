package irserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saruga/primec/internal/ir"
)

func sampleModule() *ir.Module {
	m := &ir.Module{
		Functions: []ir.Function{
			{
				Name:       "/main",
				LocalCount: 2,
				Instructions: []ir.Instruction{
					{Op: ir.OpPushI32, Imm: 7},
					{Op: ir.OpStoreLocal, Imm: 0},
					{Op: ir.OpLoadLocal, Imm: 0},
					{Op: ir.OpReturnI32},
				},
			},
		},
		StringTable: []string{"array index out of bounds\n", "hello"},
		StructLayouts: []ir.StructLayout{
			{
				Name: "/lib/Pair", AlignmentBytes: 8, TotalSizeBytes: 16,
				Fields: []ir.StructFieldLayout{
					{Name: "a", OffsetBytes: 0, SizeBytes: 4, AlignmentBytes: 4, Category: "field", Visibility: "private"},
					{Name: "b", OffsetBytes: 8, SizeBytes: 8, AlignmentBytes: 8, Category: "field", Visibility: "private"},
				},
			},
		},
		EntryIndex: 0,
	}
	return m
}

func TestRoundTripExact(t *testing.T) {
	m := sampleModule()
	data := Serialize(m)

	got, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, m.EntryIndex, got.EntryIndex)
	assert.Equal(t, m.StringTable, got.StringTable)
	require.Len(t, got.Functions, 1)
	assert.Equal(t, m.Functions[0].Name, got.Functions[0].Name)
	assert.Equal(t, m.Functions[0].LocalCount, got.Functions[0].LocalCount)
	assert.Equal(t, m.Functions[0].Instructions, got.Functions[0].Instructions)
	assert.Equal(t, m.StructLayouts, got.StructLayouts)
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := Deserialize([]byte{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestDeserializeRejectsUnsupportedVersion(t *testing.T) {
	m := sampleModule()
	data := Serialize(m)
	// corrupt the version field (bytes 4..8)
	data[4] = 0xFF
	_, err := Deserialize(data)
	assert.Error(t, err)
}
