package backend

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Payload attribute helpers shared by the built-in backends. Task payloads
// are opaque cty objects; these decode individual attributes with implicit
// type conversion, so a grid file may write `depth = "3"` or `depth = 3`.

// PayloadAttr returns the named payload attribute, or cty.NilVal when the
// payload is not an object or lacks the attribute.
func PayloadAttr(payload cty.Value, name string) cty.Value {
	if payload.IsNull() || !payload.Type().IsObjectType() || !payload.Type().HasAttribute(name) {
		return cty.NilVal
	}
	return payload.GetAttr(name)
}

// PayloadString decodes a string payload attribute. Absent attributes yield
// the fallback without error.
func PayloadString(payload cty.Value, name, fallback string) (string, error) {
	v := PayloadAttr(payload, name)
	if v == cty.NilVal || v.IsNull() {
		return fallback, nil
	}
	var out string
	if err := decodeAttr(v, &out); err != nil {
		return "", fmt.Errorf("payload attribute %q: %w", name, err)
	}
	return out, nil
}

// PayloadStringList decodes a list-of-strings payload attribute. Absent
// attributes yield nil without error.
func PayloadStringList(payload cty.Value, name string) ([]string, error) {
	v := PayloadAttr(payload, name)
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	var out []string
	if err := decodeAttr(v, &out); err != nil {
		return nil, fmt.Errorf("payload attribute %q: %w", name, err)
	}
	return out, nil
}

// decodeAttr converts and decodes a cty value into a Go pointer.
func decodeAttr(v cty.Value, target any) error {
	impliedType, err := gocty.ImpliedType(target)
	if err != nil {
		return err
	}
	converted, err := convert.Convert(v, impliedType)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(converted, target)
}
