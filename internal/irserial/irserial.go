// Package irserial implements the exact binary round-trip format for
// an ir.Module: magic+version header, per-function instruction stream,
// string table, and struct layout records.
package irserial

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/saruga/primec/internal/ir"
)

// Magic identifies a serialized IR module; Version allows the format
// to evolve without silently misreading an older file.
const (
	Magic   uint32 = 0x5052494d // "PRIM"
	Version uint32 = 1
)

// Serialize encodes m into the exact binary format: header, functions,
// string table, struct layouts.
func Serialize(m *ir.Module) []byte {
	var buf bytes.Buffer
	writeU32(&buf, Magic)
	writeU32(&buf, Version)
	writeU32(&buf, uint32(m.EntryIndex))

	writeU32(&buf, uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		writeString(&buf, fn.Name)
		writeU32(&buf, uint32(fn.LocalCount))
		writeU32(&buf, uint32(len(fn.Instructions)))
		for _, ins := range fn.Instructions {
			writeU16(&buf, uint16(ins.Op))
			writeU64(&buf, ins.Imm)
		}
	}

	writeU32(&buf, uint32(len(m.StringTable)))
	for _, s := range m.StringTable {
		writeString(&buf, s)
	}

	writeU32(&buf, uint32(len(m.StructLayouts)))
	for _, sl := range m.StructLayouts {
		writeString(&buf, sl.Name)
		writeU32(&buf, uint32(sl.AlignmentBytes))
		writeU32(&buf, uint32(sl.TotalSizeBytes))
		writeU32(&buf, uint32(len(sl.Fields)))
		for _, f := range sl.Fields {
			writeString(&buf, f.Name)
			writeString(&buf, f.Envelope)
			writeU32(&buf, uint32(f.OffsetBytes))
			writeU32(&buf, uint32(f.SizeBytes))
			writeU32(&buf, uint32(f.AlignmentBytes))
			buf.WriteByte(f.PaddingKind)
			writeString(&buf, f.Category)
			writeString(&buf, f.Visibility)
			if f.IsStatic {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		}
	}

	return buf.Bytes()
}

// Deserialize decodes a module previously produced by Serialize.
func Deserialize(data []byte) (*ir.Module, error) {
	r := bytes.NewReader(data)

	magic, err := readU32(r)
	if err != nil || magic != Magic {
		return nil, fmt.Errorf("not a primec IR module (bad magic)")
	}
	version, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("truncated IR module header")
	}
	if version != Version {
		return nil, fmt.Errorf("unsupported IR module version: %d", version)
	}
	entryIndex, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("truncated IR module header")
	}

	m := &ir.Module{EntryIndex: int(entryIndex)}

	fnCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("truncated function count")
	}
	m.Functions = make([]ir.Function, fnCount)
	for i := range m.Functions {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("truncated function name")
		}
		localCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("truncated local count")
		}
		instCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("truncated instruction count")
		}
		instructions := make([]ir.Instruction, instCount)
		for j := range instructions {
			op, err := readU16(r)
			if err != nil {
				return nil, fmt.Errorf("truncated instruction opcode")
			}
			imm, err := readU64(r)
			if err != nil {
				return nil, fmt.Errorf("truncated instruction immediate")
			}
			instructions[j] = ir.Instruction{Op: ir.Opcode(op), Imm: imm}
		}
		m.Functions[i] = ir.Function{Name: name, LocalCount: int(localCount), Instructions: instructions}
	}

	strCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("truncated string table count")
	}
	m.StringTable = make([]string, strCount)
	for i := range m.StringTable {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("truncated string table entry")
		}
		m.StringTable[i] = s
	}

	layoutCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("truncated struct layout count")
	}
	m.StructLayouts = make([]ir.StructLayout, layoutCount)
	for i := range m.StructLayouts {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("truncated struct layout name")
		}
		align, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("truncated struct alignment")
		}
		total, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("truncated struct total size")
		}
		fieldCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("truncated struct field count")
		}
		fields := make([]ir.StructFieldLayout, fieldCount)
		for j := range fields {
			fname, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field name")
			}
			envelope, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field envelope")
			}
			offset, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field offset")
			}
			size, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field size")
			}
			falign, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field alignment")
			}
			padding, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("truncated field padding kind")
			}
			category, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field category")
			}
			visibility, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("truncated field visibility")
			}
			isStatic, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("truncated field static flag")
			}
			fields[j] = ir.StructFieldLayout{
				Name: fname, Envelope: envelope, OffsetBytes: int(offset), SizeBytes: int(size),
				AlignmentBytes: int(falign), PaddingKind: padding, Category: category,
				Visibility: visibility, IsStatic: isStatic != 0,
			}
		}
		m.StructLayouts[i] = ir.StructLayout{Name: name, AlignmentBytes: int(align), TotalSizeBytes: int(total), Fields: fields}
	}

	return m, nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return "", err
		}
	}
	return string(b), nil
}
