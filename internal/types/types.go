// Package types models primec's small static type system: primitives,
// collections, and the Pointer/Reference family, plus the struct types
// resolved from the program's definition table.
//
// Grounded on the teacher's internal/types package (a Type interface with
// String/Equals/Size/Align), narrowed to this spec's fixed primitive set
// instead of WGSL's scalar/vector/matrix/texture hierarchy.
package types

import "fmt"

// Kind identifies the category of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindI32
	KindI64
	KindU64
	KindBool
	KindF32
	KindF64
	KindArray
	KindVector
	KindMap
	KindPointer
	KindReference
	KindStruct
	KindString // string literal / string-binding type, not user-addressable
)

// Type describes a resolved primec type.
type Type struct {
	Kind Kind

	// Array/Vector element type; Map key type
	Elem *Type
	// Map value type
	Value *Type

	// Pointer/Reference target
	Target *Type

	// Struct name (fully-qualified definition path)
	StructName string
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindBool:
		return "bool"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	case KindArray:
		return fmt.Sprintf("array<%s>", t.Elem)
	case KindVector:
		return fmt.Sprintf("vector<%s>", t.Elem)
	case KindMap:
		return fmt.Sprintf("map<%s,%s>", t.Elem, t.Value)
	case KindPointer:
		return fmt.Sprintf("Pointer<%s>", t.Target)
	case KindReference:
		return fmt.Sprintf("Reference<%s>", t.Target)
	case KindStruct:
		return t.StructName
	default:
		return "invalid"
	}
}

// Equals reports whether t and other describe the same type.
func (t *Type) Equals(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindArray, KindVector:
		return t.Elem.Equals(other.Elem)
	case KindMap:
		return t.Elem.Equals(other.Elem) && t.Value.Equals(other.Value)
	case KindPointer, KindReference:
		return t.Target.Equals(other.Target)
	case KindStruct:
		return t.StructName == other.StructName
	default:
		return true
	}
}

// IsNumeric reports whether t is one of the integer or float primitives.
func (t *Type) IsNumeric() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindI32, KindI64, KindU64, KindF32, KindF64:
		return true
	}
	return false
}

// IsInteger reports whether t is i32/i64/u64.
func (t *Type) IsInteger() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindI32, KindI64, KindU64:
		return true
	}
	return false
}

// IsFloat reports whether t is f32/f64.
func (t *Type) IsFloat() bool {
	return t != nil && (t.Kind == KindF32 || t.Kind == KindF64)
}

// IsSigned reports whether an integer type is signed (i32/i64).
func (t *Type) IsSigned() bool {
	return t != nil && (t.Kind == KindI32 || t.Kind == KindI64)
}

// Width returns the bit width of a numeric type (32 or 64), or 0.
func (t *Type) Width() int {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case KindI32, KindF32:
		return 32
	case KindI64, KindU64, KindF64:
		return 64
	}
	return 0
}

// IsCollection reports whether t is array/vector/map.
func (t *Type) IsCollection() bool {
	return t != nil && (t.Kind == KindArray || t.Kind == KindVector || t.Kind == KindMap)
}

// primitiveAliases maps surface-syntax aliases to their canonical tag.
var primitiveAliases = map[string]string{
	"int": "i32", "float": "f32",
}

// softwareNumericNames are explicitly rejected by the validator.
var softwareNumericNames = map[string]bool{
	"integer": true, "decimal": true, "complex": true,
}

// IsSoftwareNumeric reports whether name names an unsupported
// software-numeric type tag.
func IsSoftwareNumeric(name string) bool { return softwareNumericNames[name] }

// ResolveAlias canonicalizes a primitive type-tag alias ("int" -> "i32").
func ResolveAlias(name string) string {
	if canon, ok := primitiveAliases[name]; ok {
		return canon
	}
	return name
}

// Primitive constructs a Type from a canonical primitive tag name, or
// nil if name does not name a primitive.
func Primitive(name string) *Type {
	switch ResolveAlias(name) {
	case "i32":
		return &Type{Kind: KindI32}
	case "i64":
		return &Type{Kind: KindI64}
	case "u64":
		return &Type{Kind: KindU64}
	case "bool":
		return &Type{Kind: KindBool}
	case "f32":
		return &Type{Kind: KindF32}
	case "f64":
		return &Type{Kind: KindF64}
	default:
		return nil
	}
}

// FromAnnotation resolves a bracket type-annotation transform's own
// Name and TemplateArgs into a concrete Type. name is the annotation's
// constructor/type name ("i32", "array", "Pointer", "map", a struct
// name, ...); templateArgs are its bracket template arguments (the
// element type for array/vector, key/value for map, target for
// Pointer/Reference).
//
// A literal "type" name is also accepted, reading templateArgs[0] as
// the base type name directly — the shape hand-built ASTs use when
// they bypass the parser.
func FromAnnotation(name string, templateArgs []string) (*Type, error) {
	switch name {
	case "array", "vector":
		if len(templateArgs) != 1 {
			return nil, fmt.Errorf("%s<T> requires exactly one type argument", name)
		}
		elem, err := FromAnnotation(templateArgs[0], nil)
		if err != nil {
			return nil, err
		}
		kind := KindArray
		if name == "vector" {
			kind = KindVector
		}
		return &Type{Kind: kind, Elem: elem}, nil
	case "map":
		if len(templateArgs) != 2 {
			return nil, fmt.Errorf("map<K,V> requires exactly two type arguments")
		}
		key, err := FromAnnotation(templateArgs[0], nil)
		if err != nil {
			return nil, err
		}
		val, err := FromAnnotation(templateArgs[1], nil)
		if err != nil {
			return nil, err
		}
		return &Type{Kind: KindMap, Elem: key, Value: val}, nil
	case "Pointer", "Reference":
		if len(templateArgs) != 1 {
			return nil, fmt.Errorf("%s<T> requires exactly one type argument", name)
		}
		target, err := FromAnnotation(templateArgs[0], nil)
		if err != nil {
			return nil, err
		}
		kind := KindPointer
		if name == "Reference" {
			kind = KindReference
		}
		return &Type{Kind: kind, Target: target}, nil
	case "type":
		if len(templateArgs) == 0 {
			return nil, nil
		}
		return FromAnnotation(templateArgs[0], nil)
	case "string":
		return &Type{Kind: KindString}, nil
	default:
		if IsSoftwareNumeric(name) {
			return nil, fmt.Errorf("software numeric types are not supported yet")
		}
		if p := Primitive(name); p != nil {
			return p, nil
		}
		return &Type{Kind: KindStruct, StructName: name}, nil
	}
}
