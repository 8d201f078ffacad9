package reflector

import (
	"fmt"
	"strings"
)

// Flags is the part of a host type's flag set the reflector looks at.
// Hosts map their own flag bits onto these; anything without a
// counterpart is reported as FlagOther.
type Flags uint32

const (
	FlagString Flags = 1 << iota
	FlagNumber
	FlagBoolean
	FlagEnumLiteral
	FlagBigIntLiteral
	FlagESSymbol
	FlagVoid
	FlagUndefined
	FlagNull
	FlagNever
	FlagUnion
	FlagStringLiteral
	FlagNumberLiteral
	FlagBooleanLiteral
	FlagObject
	FlagIntersection
	FlagAny
	FlagUnknown
	FlagOther
)

// primitiveFlags are the flags that make a type primitive.
const primitiveFlags = FlagString | FlagNumber | FlagBoolean | FlagEnumLiteral |
	FlagBigIntLiteral | FlagESSymbol | FlagVoid | FlagUndefined | FlagNull | FlagNever

// structuralFlags disqualify a type from being primitive under PolicyIntersect.
const structuralFlags = FlagObject | FlagIntersection | FlagAny | FlagUnknown | FlagOther

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagString, "String"},
	{FlagNumber, "Number"},
	{FlagBoolean, "Boolean"},
	{FlagEnumLiteral, "EnumLiteral"},
	{FlagBigIntLiteral, "BigIntLiteral"},
	{FlagESSymbol, "ESSymbol"},
	{FlagVoid, "Void"},
	{FlagUndefined, "Undefined"},
	{FlagNull, "Null"},
	{FlagNever, "Never"},
	{FlagUnion, "Union"},
	{FlagStringLiteral, "StringLiteral"},
	{FlagNumberLiteral, "NumberLiteral"},
	{FlagBooleanLiteral, "BooleanLiteral"},
	{FlagObject, "Object"},
	{FlagIntersection, "Intersection"},
	{FlagAny, "Any"},
	{FlagUnknown, "Unknown"},
	{FlagOther, "Other"},
}

// Has reports whether any bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}

// FlagPolicy selects how primitive-ness is read from a flag set.
type FlagPolicy string

const (
	// PolicyIntersect treats a type as primitive when its flags intersect the
	// primitive set and carry no structural flag. A union is primitive when
	// every member is.
	PolicyIntersect FlagPolicy = "intersect"
	// PolicyExact treats a type as primitive only when its own flag set is
	// exactly one primitive flag.
	PolicyExact FlagPolicy = "exact"
)

// ParsePolicy converts a config value into a FlagPolicy. The empty string
// selects PolicyIntersect.
func ParsePolicy(s string) (FlagPolicy, error) {
	switch FlagPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyIntersect:
		return PolicyIntersect, nil
	case PolicyExact:
		return PolicyExact, nil
	}
	return "", fmt.Errorf("unknown flag policy %q (expected %q or %q)", s, PolicyIntersect, PolicyExact)
}

// flagSet returns the type's own flags together with the flags of its union
// members. Optional detection reads this set so that `number | undefined`
// is seen as optional.
func flagSet(t Type) Flags {
	f := t.Flags()
	if f.Has(FlagUnion) {
		for _, m := range t.Members() {
			f |= m.Flags()
		}
	}
	return f
}

func isExactPrimitive(f Flags) bool {
	switch f {
	case FlagString, FlagNumber, FlagBoolean, FlagEnumLiteral, FlagBigIntLiteral,
		FlagESSymbol, FlagVoid, FlagUndefined, FlagNull, FlagNever:
		return true
	}
	return false
}

func isIntersectPrimitive(f Flags) bool {
	return f.Has(primitiveFlags) && !f.Has(structuralFlags)
}

// isPrimitive applies the policy. The display string "boolean" is always
// primitive because hosts model boolean as the union `true | false`.
func isPrimitive(t Type, policy FlagPolicy) bool {
	if t.String() == "boolean" {
		return true
	}
	f := t.Flags()
	if policy == PolicyExact {
		return isExactPrimitive(f)
	}
	if !f.Has(FlagUnion) {
		return isIntersectPrimitive(f)
	}
	members := t.Members()
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		mf := m.Flags()
		// true and false are the members of boolean.
		if mf.Has(FlagBooleanLiteral) && !mf.Has(structuralFlags) {
			continue
		}
		if !isIntersectPrimitive(mf) {
			return false
		}
	}
	return true
}
