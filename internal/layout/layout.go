// Package layout computes struct field offsets, alignment, and total
// size from a validated struct Definition, including the no_padding,
// platform_independent_padding, pod, handle, and gpu_lane constraint
// checks.
//
// Grounded on the teacher's internal/reflect layout computer (a
// LayoutComputer walking declared fields, caching results by struct
// name to support self-referential lookups), narrowed here to the
// fixed i32/i64/u64/bool/f32/f64/pointer/struct field-size table this
// spec's type system defines instead of WGSL's vector/matrix rules.
package layout

import (
	"fmt"

	"github.com/saruga/primec/internal/ast"
	"github.com/saruga/primec/internal/types"
)

// PaddingKind records why padding bytes were inserted before a field,
// carried through to the IR's IrStructLayout.
type PaddingKind uint8

const (
	PaddingNone PaddingKind = iota
	PaddingImplicit
	PaddingExplicitAlign
)

// Field is one laid-out struct member.
type Field struct {
	Name       string
	Type       *types.Type
	Envelope   string // "" for normal fields, else the enclosing transform name (static, etc.)
	Offset     int
	Size       int
	Alignment  int
	Padding    PaddingKind
	Visibility string
	IsStatic   bool
}

// StructLayout is the computed layout of one struct definition.
type StructLayout struct {
	Name      string
	Alignment int
	TotalSize int
	Fields    []Field
}

// Computer computes and caches struct layouts, resolving nested struct
// fields by recursing into the definition table.
type Computer struct {
	program   *ast.Program
	cache     map[string]*StructLayout
	computing map[string]bool
}

// NewComputer creates a layout Computer over program's definition table.
func NewComputer(program *ast.Program) *Computer {
	return &Computer{
		program:   program,
		cache:     map[string]*StructLayout{},
		computing: map[string]bool{},
	}
}

// primitiveSize returns the byte size and alignment of a scalar type.
func primitiveSize(t *types.Type) (size, align int) {
	switch t.Kind {
	case types.KindI32, types.KindF32:
		return 4, 4
	case types.KindI64, types.KindU64, types.KindF64:
		return 8, 8
	case types.KindBool:
		return 1, 1
	case types.KindPointer, types.KindReference:
		return 8, 8
	case types.KindArray, types.KindVector, types.KindMap:
		// a collection field holds a heap handle, the same width as a
		// pointer.
		return 8, 8
	default:
		return 0, 1
	}
}

// Compute returns the layout for the struct named fullPath, computing
// and caching it on first request. Detects recursive struct
// definitions.
func (c *Computer) Compute(fullPath string) (*StructLayout, error) {
	if cached, ok := c.cache[fullPath]; ok {
		return cached, nil
	}
	if c.computing[fullPath] {
		return nil, fmt.Errorf("recursive struct layout not supported")
	}
	def := c.program.FindDefinition(fullPath)
	if def == nil {
		return nil, fmt.Errorf("unknown struct definition: %s", fullPath)
	}
	c.computing[fullPath] = true
	defer delete(c.computing, fullPath)

	isPod := def.HasTransformNamed("pod")
	isHandle := def.HasTransformNamed("handle")
	isGPULane := def.HasTransformNamed("gpu_lane")
	noPadding := def.HasTransformNamed("no_padding")
	piPadding := def.HasTransformNamed("platform_independent_padding")

	if isPod && (isHandle || isGPULane) {
		return nil, fmt.Errorf("pod structs reject handle/gpu_lane field tags")
	}
	if isHandle && isGPULane {
		return nil, fmt.Errorf("handle and gpu_lane are mutually exclusive")
	}

	structAlign := explicitStructAlign(def)
	offset := 0
	var fields []Field
	var staticFields []Field

	for _, stmt := range def.Statements {
		if !stmt.IsBinding {
			continue
		}
		fieldType, err := c.resolveFieldType(stmt)
		if err != nil {
			return nil, err
		}
		size, align, err := c.fieldSize(fieldType)
		if err != nil {
			return nil, err
		}
		explicit := explicitFieldAlign(stmt)
		if explicit > 0 {
			align = explicit
		}

		isStatic := stmt.HasTransform("static")
		padding := PaddingNone
		fieldOffset := offset
		if !isStatic {
			aligned := alignUp(offset, align)
			if aligned != offset {
				if noPadding {
					return nil, fmt.Errorf("no_padding struct requires no implicit padding before field %q", stmt.Name)
				}
				if piPadding && explicit == 0 {
					return nil, fmt.Errorf("platform_independent_padding requires an explicit alignment on field %q", stmt.Name)
				}
				padding = PaddingImplicit
				if explicit > 0 {
					padding = PaddingExplicitAlign
				}
			}
			fieldOffset = aligned
			offset = fieldOffset + size
			if align > structAlign {
				structAlign = align
			}
		}

		f := Field{
			Name: stmt.Name, Type: fieldType, Offset: fieldOffset, Size: size,
			Alignment: align, Padding: padding, Visibility: visibilityOf(stmt), IsStatic: isStatic,
		}
		if isStatic {
			staticFields = append(staticFields, f)
		} else {
			fields = append(fields, f)
		}
	}

	if structAlign == 0 {
		structAlign = 1
	}
	totalSize := alignUp(offset, structAlign)

	layout := &StructLayout{
		Name:      fullPath,
		Alignment: structAlign,
		TotalSize: totalSize,
		Fields:    append(fields, staticFields...),
	}
	c.cache[fullPath] = layout
	return layout, nil
}

func (c *Computer) fieldSize(t *types.Type) (size, align int, err error) {
	if t.Kind == types.KindStruct {
		sub, err := c.Compute(t.StructName)
		if err != nil {
			return 0, 1, err
		}
		return sub.TotalSize, sub.Alignment, nil
	}
	size, align = primitiveSize(t)
	return size, align, nil
}

// resolveFieldType resolves the declared type of a binding statement
// from its type-transform, falling back to inference from the
// initializer in the simple literal case.
func (c *Computer) resolveFieldType(stmt *ast.Expr) (*types.Type, error) {
	if tt := stmt.DeclaredTypeTransform(); tt != nil {
		return types.FromAnnotation(tt.Name, tt.TemplateArgs)
	}
	if len(stmt.Args) == 1 {
		init := stmt.Args[0]
		switch init.Kind {
		case ast.ExprLiteral:
			if init.IntWidth == 64 {
				if init.IntSigned {
					return types.Primitive("i64"), nil
				}
				return types.Primitive("u64"), nil
			}
			return types.Primitive("i32"), nil
		case ast.ExprBoolLiteral:
			return types.Primitive("bool"), nil
		case ast.ExprFloatLiteral:
			if init.FloatWidth == 64 {
				return types.Primitive("f64"), nil
			}
			return types.Primitive("f32"), nil
		}
	}
	return nil, fmt.Errorf("cannot infer type of field %q", stmt.Name)
}

func explicitStructAlign(def *ast.Definition) int {
	for _, tr := range def.Transforms {
		if n, ok := alignBytes(tr); ok {
			return n
		}
	}
	return 0
}

func explicitFieldAlign(stmt *ast.Expr) int {
	for _, tr := range stmt.Transforms {
		if n, ok := alignBytes(tr); ok {
			return n
		}
	}
	return 0
}

func alignBytes(tr *ast.Transform) (int, bool) {
	switch tr.Name {
	case "align_bytes":
		if len(tr.TemplateArgs) == 1 {
			return atoiOrZero(tr.TemplateArgs[0]), true
		}
	case "align_kbytes":
		if len(tr.TemplateArgs) == 1 {
			return atoiOrZero(tr.TemplateArgs[0]) * 1024, true
		}
	}
	return 0, false
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func visibilityOf(stmt *ast.Expr) string {
	for _, name := range []string{"public", "private", "package"} {
		if stmt.HasTransform(name) {
			return name
		}
	}
	return "private"
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}
