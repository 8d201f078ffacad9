package reflector_test

import (
	"sync/atomic"

	"github.com/tsreflect/tsreflect/internal/reflector"
)

var nextFakeID atomic.Uint64

// fakeType is a hand-built reflector.Type.
type fakeType struct {
	id      uint64
	flags   reflector.Flags
	display string
	literal bool
	members []reflector.Type
	symbol  bool
	elems   []reflector.Type
	isArray bool
	props   []reflector.Property
	tags    []reflector.Tag
}

func newFake(flags reflector.Flags, display string) *fakeType {
	return &fakeType{id: nextFakeID.Add(1), flags: flags, display: display}
}

func (f *fakeType) Flags() reflector.Flags           { return f.flags }
func (f *fakeType) String() string                   { return f.display }
func (f *fakeType) IsLiteral() bool                  { return f.literal }
func (f *fakeType) Members() []reflector.Type        { return f.members }
func (f *fakeType) HasSymbol() bool                  { return f.symbol }
func (f *fakeType) Properties() []reflector.Property { return f.props }
func (f *fakeType) Tags() []reflector.Tag            { return f.tags }
func (f *fakeType) ID() uint64                       { return f.id }

func (f *fakeType) Elements() ([]reflector.Type, bool) {
	return f.elems, f.isArray
}

func str() *fakeType   { return newFake(reflector.FlagString, "string") }
func num() *fakeType   { return newFake(reflector.FlagNumber, "number") }
func undef() *fakeType { return newFake(reflector.FlagUndefined, "undefined") }
func boolLit(v string) *fakeType {
	return newFake(reflector.FlagBooleanLiteral, v)
}

func strLit(v string) *fakeType {
	t := newFake(reflector.FlagStringLiteral, `"`+v+`"`)
	t.literal = true
	return t
}

func union(display string, members ...*fakeType) *fakeType {
	t := newFake(reflector.FlagUnion, display)
	for _, m := range members {
		t.members = append(t.members, m)
	}
	return t
}

func boolean() *fakeType {
	t := union("boolean", boolLit("false"), boolLit("true"))
	t.flags |= reflector.FlagBoolean
	return t
}

func object(display string, props ...reflector.Property) *fakeType {
	t := newFake(reflector.FlagObject, display)
	t.symbol = true
	t.props = props
	return t
}

func array(display string, elems ...*fakeType) *fakeType {
	t := newFake(reflector.FlagObject, display)
	t.symbol = true
	t.isArray = true
	for _, e := range elems {
		t.elems = append(t.elems, e)
	}
	return t
}

func prop(name string, t reflector.Type, tags ...reflector.Tag) reflector.Property {
	return reflector.Property{Name: name, Type: t, Tags: tags}
}
