// Package analyzer adapts the typescript-go checker to the reflector's
// type-query capability and extracts documentation tags from declarations.
package analyzer

import (
	"github.com/microsoft/typescript-go/shim/ast"
	shimchecker "github.com/microsoft/typescript-go/shim/checker"
	"github.com/tsreflect/tsreflect/internal/reflector"
)

// TypeQuery answers reflector queries with a tsgo checker.
// Types are memoized by TypeId so that the same checker type always maps to
// the same reflector.Type value.
type TypeQuery struct {
	checker *shimchecker.Checker
	types   map[shimchecker.TypeId]*checkedType
}

// NewTypeQuery creates a TypeQuery bound to checker.
func NewTypeQuery(checker *shimchecker.Checker) *TypeQuery {
	return &TypeQuery{
		checker: checker,
		types:   make(map[shimchecker.TypeId]*checkedType),
	}
}

// TypeOfNode resolves a type node (a marker's type argument) to its type.
// Returns nil when the checker cannot resolve it.
func (q *TypeQuery) TypeOfNode(node *ast.Node) reflector.Type {
	if node == nil {
		return nil
	}
	t := shimchecker.Checker_getTypeFromTypeNode(q.checker, node)
	if t == nil {
		return nil
	}
	return q.Wrap(t)
}

// TypeOfSymbol returns the declared type of a named declaration symbol.
func (q *TypeQuery) TypeOfSymbol(sym *ast.Symbol) reflector.Type {
	if sym == nil {
		return nil
	}
	t := shimchecker.Checker_getDeclaredTypeOfSymbol(q.checker, sym)
	if t == nil {
		return nil
	}
	return q.Wrap(t)
}

// Wrap returns the reflector view of a checker type.
func (q *TypeQuery) Wrap(t *shimchecker.Type) reflector.Type {
	if t == nil {
		return nil
	}
	if ct, ok := q.types[t.Id()]; ok {
		return ct
	}
	ct := &checkedType{q: q, t: t}
	q.types[t.Id()] = ct
	return ct
}

// checkedType implements reflector.Type over a *shimchecker.Type.
type checkedType struct {
	q *TypeQuery
	t *shimchecker.Type

	display    string
	hasDisplay bool
}

var _ reflector.Type = (*checkedType)(nil)

func (c *checkedType) Flags() reflector.Flags {
	return mapFlags(c.t.Flags())
}

func (c *checkedType) String() string {
	if !c.hasDisplay {
		c.display = c.q.checker.TypeToString(c.t)
		c.hasDisplay = true
	}
	return c.display
}

func (c *checkedType) IsLiteral() bool {
	return c.t.Flags()&(shimchecker.TypeFlagsStringLiteral|shimchecker.TypeFlagsNumberLiteral|shimchecker.TypeFlagsBigIntLiteral) != 0
}

func (c *checkedType) Members() []reflector.Type {
	if c.t.Flags()&shimchecker.TypeFlagsUnion == 0 {
		return nil
	}
	types := c.t.Types()
	members := make([]reflector.Type, 0, len(types))
	for _, m := range types {
		members = append(members, c.q.Wrap(m))
	}
	return members
}

// HasSymbol treats tuples as having a symbol: tuple targets carry none of
// their own but still expose their element types.
func (c *checkedType) HasSymbol() bool {
	return c.t.Symbol() != nil || shimchecker.IsTupleType(c.t)
}

func (c *checkedType) ID() uint64 {
	return uint64(c.t.Id())
}

// Elements resolves array and tuple element types. A panic inside the
// checker while answering is a negative answer.
func (c *checkedType) Elements() (elems []reflector.Type, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			elems, ok = nil, false
		}
	}()

	if c.t.Flags()&shimchecker.TypeFlagsObject == 0 {
		return nil, false
	}

	var args []*shimchecker.Type
	switch {
	case shimchecker.Checker_isArrayType(c.q.checker, c.t):
		args = shimchecker.Checker_getTypeArguments(c.q.checker, c.t)
		if len(args) > 1 {
			args = args[:1]
		}
	case shimchecker.IsTupleType(c.t):
		args = shimchecker.Checker_getTypeArguments(c.q.checker, c.t)
		if tuple := c.t.TargetTupleType(); tuple != nil {
			if n := len(shimchecker.TupleType_elementInfos(tuple)); n < len(args) {
				args = args[:n]
			}
		}
	default:
		return nil, false
	}

	elems = make([]reflector.Type, 0, len(args))
	for _, a := range args {
		elems = append(elems, c.q.Wrap(a))
	}
	return elems, true
}

func (c *checkedType) Properties() []reflector.Property {
	props := shimchecker.Checker_getPropertiesOfType(c.q.checker, c.t)
	result := make([]reflector.Property, 0, len(props))
	for _, prop := range props {
		propType := shimchecker.Checker_getTypeOfSymbol(c.q.checker, prop)
		result = append(result, reflector.Property{
			Name: prop.Name,
			Type: c.q.Wrap(propType),
			Tags: PropertyTags(prop.ValueDeclaration, prop.Name),
		})
	}
	return result
}

// Tags reads documentation tags from the type's own declaration. Only
// property declarations carry tags.
func (c *checkedType) Tags() []reflector.Tag {
	sym := c.t.Symbol()
	if sym == nil || len(sym.Declarations) == 0 {
		return nil
	}
	return PropertyTags(sym.Declarations[0], sym.Name)
}

// mapFlags projects tsgo type flags onto reflector flags.
func mapFlags(f shimchecker.TypeFlags) reflector.Flags {
	var out reflector.Flags
	pairs := []struct {
		from shimchecker.TypeFlags
		to   reflector.Flags
	}{
		{shimchecker.TypeFlagsString, reflector.FlagString},
		{shimchecker.TypeFlagsNumber, reflector.FlagNumber},
		{shimchecker.TypeFlagsBoolean, reflector.FlagBoolean},
		{shimchecker.TypeFlagsEnumLiteral, reflector.FlagEnumLiteral},
		{shimchecker.TypeFlagsBigIntLiteral, reflector.FlagBigIntLiteral},
		{shimchecker.TypeFlagsESSymbol, reflector.FlagESSymbol},
		{shimchecker.TypeFlagsVoid, reflector.FlagVoid},
		{shimchecker.TypeFlagsUndefined, reflector.FlagUndefined},
		{shimchecker.TypeFlagsNull, reflector.FlagNull},
		{shimchecker.TypeFlagsNever, reflector.FlagNever},
		{shimchecker.TypeFlagsUnion, reflector.FlagUnion},
		{shimchecker.TypeFlagsStringLiteral, reflector.FlagStringLiteral},
		{shimchecker.TypeFlagsNumberLiteral, reflector.FlagNumberLiteral},
		{shimchecker.TypeFlagsBooleanLiteral, reflector.FlagBooleanLiteral},
		{shimchecker.TypeFlagsObject, reflector.FlagObject},
		{shimchecker.TypeFlagsIntersection, reflector.FlagIntersection},
		{shimchecker.TypeFlagsAny, reflector.FlagAny},
		{shimchecker.TypeFlagsUnknown, reflector.FlagUnknown},
	}
	var mapped shimchecker.TypeFlags
	for _, p := range pairs {
		mapped |= p.from
		if f&p.from != 0 {
			out |= p.to
		}
	}
	if f&^mapped != 0 {
		out |= reflector.FlagOther
	}
	return out
}
