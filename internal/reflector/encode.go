package reflector

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Encode returns the compact JSON encoding of d.
func Encode(d *Description) ([]byte, error) {
	return json.Marshal(d)
}

// EncodeIndent returns an indented JSON encoding of d for display.
func EncodeIndent(d *Description) ([]byte, error) {
	return json.Marshal(d, jsontext.WithIndent("  "))
}

// Quote returns data as a double-quoted JavaScript string literal.
// U+2028 and U+2029 are escaped so the literal is valid in any JS source.
func Quote(data []byte) (string, error) {
	out, err := json.Marshal(string(data), jsontext.EscapeForJS(true))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Literal reflects t and returns the quoted JSON literal that replaces a
// marker call, together with the description it encodes.
func (r *Reflector) Literal(t Type) (string, *Description, error) {
	d, err := r.Reflect(t)
	if err != nil {
		return "", nil, err
	}
	data, err := Encode(d)
	if err != nil {
		return "", nil, err
	}
	lit, err := Quote(data)
	if err != nil {
		return "", nil, err
	}
	return lit, d, nil
}
