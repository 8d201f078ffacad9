// Package reflector turns resolved TypeScript types into JSON descriptions.
//
// The reflector never talks to a compiler directly. It walks values of the
// Type interface, which the analyzer package implements on top of the
// typescript-go checker and tests implement with plain structs.
package reflector

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDepthExceeded is returned when a description would nest deeper than
// Options.MaxDepth.
var ErrDepthExceeded = errors.New("maximum reflection depth exceeded")

// Type is the type-query capability for one resolved type.
type Type interface {
	// Flags returns the type's own flags.
	Flags() Flags
	// String returns the display string of the type.
	String() string
	// IsLiteral reports whether the type is a string, number or bigint literal.
	IsLiteral() bool
	// Members returns the alternatives of a union, nil otherwise.
	Members() []Type
	// HasSymbol reports whether the type has a declaration symbol.
	HasSymbol() bool
	// Elements returns the element types of an array or tuple. ok is false
	// when the type is not an array or the host cannot tell.
	Elements() (elems []Type, ok bool)
	// Properties returns the declared properties in enumeration order.
	Properties() []Property
	// Tags returns documentation tags from the type's own declaration.
	Tags() []Tag
	// ID identifies the type within one program.
	ID() uint64
}

// Property is one declared property of a record type.
type Property struct {
	Name string
	Type Type
	Tags []Tag
}

// Options configures a Reflector.
type Options struct {
	// Policy selects primitive detection. Zero means PolicyIntersect.
	Policy FlagPolicy
	// MaxDepth bounds description nesting. Zero means unlimited.
	MaxDepth int
	// Unrepresentable is called with the display string of every type that
	// reflects to nothing.
	Unrepresentable func(display string)
}

// Reflector builds descriptions. It is not safe for concurrent use.
type Reflector struct {
	opts Options
	// active holds the types on the current expansion path.
	active map[uint64]bool
	depth  int
}

// New creates a Reflector.
func New(opts Options) *Reflector {
	if opts.Policy == "" {
		opts.Policy = PolicyIntersect
	}
	return &Reflector{
		opts:   opts,
		active: make(map[uint64]bool),
	}
}

// Policy returns the active flag policy.
func (r *Reflector) Policy() FlagPolicy {
	return r.opts.Policy
}

// Reflect returns the root description of t. Children are present unless
// t is primitive.
func (r *Reflector) Reflect(t Type) (*Description, error) {
	if t == nil {
		return nil, errors.New("reflect: nil type")
	}
	return r.build(t, t.Tags())
}

// IsPrimitive reports whether t is primitive under the active policy.
func (r *Reflector) IsPrimitive(t Type) bool {
	return isPrimitive(t, r.opts.Policy)
}

// describe fills the flat fields of a description.
func (r *Reflector) describe(t Type, tags []Tag) *Description {
	_, isArray := t.Elements()
	if tags == nil {
		tags = []Tag{}
	}
	return &Description{
		Type:      t.String(),
		Optional:  flagSet(t).Has(FlagUndefined),
		Union:     t.Flags().Has(FlagUnion),
		Literal:   t.IsLiteral(),
		Array:     isArray,
		Primitive: r.IsPrimitive(t),
		Tags:      tags,
	}
}

// build describes t and, unless it is primitive, its children.
func (r *Reflector) build(t Type, tags []Tag) (*Description, error) {
	d := r.describe(t, tags)
	if d.Primitive {
		return d, nil
	}

	id := t.ID()
	if r.active[id] {
		d.Circular = true
		return d, nil
	}
	if r.opts.MaxDepth > 0 && r.depth >= r.opts.MaxDepth {
		return nil, fmt.Errorf("%w: %d levels at %q", ErrDepthExceeded, r.opts.MaxDepth, d.Type)
	}

	r.active[id] = true
	r.depth++
	defer func() {
		delete(r.active, id)
		r.depth--
	}()

	children, err := r.Children(t)
	if err != nil {
		return nil, err
	}
	d.Children = children
	return d, nil
}

// reflectsToNothing reports whether d has no payload while being neither
// primitive nor a circular back-reference. Empty records and arrays carry a
// non-nil payload.
func reflectsToNothing(d *Description) bool {
	return d == nil || (!d.Primitive && !d.Circular && d.Children == nil)
}

// Children classifies t and returns its payload. The first match wins:
// union, primitive, symbol-less (literal or nothing), array, record.
// A nil result with a nil error means t is unrepresentable. Unrepresentable
// union members are dropped; elsewhere the entry stays without children.
func (r *Reflector) Children(t Type) (Children, error) {
	if t.Flags().Has(FlagUnion) {
		seq := make(Sequence, 0, len(t.Members()))
		for _, m := range t.Members() {
			d, err := r.build(m, m.Tags())
			if err != nil {
				return nil, err
			}
			if !reflectsToNothing(d) {
				seq = append(seq, d)
			}
		}
		return seq, nil
	}

	if r.IsPrimitive(t) {
		return r.describe(t, nil), nil
	}

	if !t.HasSymbol() {
		if t.IsLiteral() {
			return LiteralText(strings.ReplaceAll(t.String(), `"`, "")), nil
		}
		if r.opts.Unrepresentable != nil {
			r.opts.Unrepresentable(t.String())
		}
		return nil, nil
	}

	if elems, ok := t.Elements(); ok {
		seq := make(Sequence, 0, len(elems))
		for _, e := range elems {
			d, err := r.build(e, e.Tags())
			if err != nil {
				return nil, err
			}
			seq = append(seq, d)
		}
		return seq, nil
	}

	rec := NewRecord()
	for _, p := range t.Properties() {
		d, err := r.build(p.Type, p.Tags)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		rec.Set(p.Name, d)
	}
	return rec, nil
}
