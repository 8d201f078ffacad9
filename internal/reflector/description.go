package reflector

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Tag is one documentation tag: [tagName, tagComment, fieldName].
type Tag [3]string

// NewTag builds a Tag.
func NewTag(name, comment, field string) Tag {
	return Tag{name, comment, field}
}

func (t Tag) Name() string    { return t[0] }
func (t Tag) Comment() string { return t[1] }
func (t Tag) Field() string   { return t[2] }

// Description is the JSON shape produced for one reflected type.
type Description struct {
	Type      string   `json:"type"`
	Optional  bool     `json:"optional"`
	Union     bool     `json:"union"`
	Literal   bool     `json:"literal"`
	Array     bool     `json:"array"`
	Primitive bool     `json:"primitive"`
	Tags      []Tag    `json:"tags"`
	Children  Children `json:"children,omitzero"`
	// Circular marks a type re-entered while it was still being expanded.
	// Its children are not repeated.
	Circular bool `json:"circular,omitzero"`
}

// Children is the kind-dependent payload of a Description. It is one of
// Sequence, *Record, LiteralText or *Description.
type Children interface {
	isChildren()
}

// Sequence holds union members or array element types, in order.
type Sequence []*Description

// LiteralText is the dequoted display text of a literal without a symbol.
type LiteralText string

func (Sequence) isChildren()     {}
func (*Record) isChildren()      {}
func (LiteralText) isChildren()  {}
func (*Description) isChildren() {}

// Record maps property names to descriptions in insertion order.
type Record struct {
	keys    []string
	entries map[string]*Description
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{entries: make(map[string]*Description)}
}

// Set adds or replaces the entry for name. Replacing keeps the original position.
func (r *Record) Set(name string, d *Description) {
	if _, ok := r.entries[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.entries[name] = d
}

// Get returns the entry for name.
func (r *Record) Get(name string) (*Description, bool) {
	d, ok := r.entries[name]
	return d, ok
}

// Keys returns property names in insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSONTo writes the record as an object whose members follow
// insertion order.
func (r *Record) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, k := range r.keys {
		if err := enc.WriteToken(jsontext.String(k)); err != nil {
			return err
		}
		if err := json.MarshalEncode(enc, r.entries[k]); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}
