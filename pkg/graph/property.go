package graph

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// PropertyKind is the shape of a property value.
type PropertyKind int

const (
	PropScalar PropertyKind = iota
	PropInt
	PropVector
	PropEnum
	PropString
)

func (k PropertyKind) String() string {
	switch k {
	case PropScalar:
		return "scalar"
	case PropInt:
		return "int"
	case PropVector:
		return "vector"
	case PropEnum:
		return "enum"
	case PropString:
		return "string"
	default:
		return fmt.Sprintf("PropertyKind(%d)", int(k))
	}
}

var vec3Type = cty.List(cty.Number)

func (k PropertyKind) ctyType() cty.Type {
	switch k {
	case PropVector:
		return vec3Type
	case PropEnum, PropString:
		return cty.String
	default:
		return cty.Number
	}
}

// Property is one named operator parameter.
type Property struct {
	Name    string
	Kind    PropertyKind
	Value   cty.Value
	Choices []string // enum only
}

// Properties is an ordered list of operator parameters.
type Properties struct {
	list []*Property
}

func (p *Properties) add(prop *Property) *Property {
	if p.Get(prop.Name) != nil {
		panic(fmt.Sprintf("graph: property %q declared twice", prop.Name))
	}
	p.list = append(p.list, prop)
	return prop
}

func (p *Properties) AddScalar(name string, v float64) *Property {
	return p.add(&Property{Name: name, Kind: PropScalar, Value: cty.NumberFloatVal(v)})
}

func (p *Properties) AddInt(name string, v int) *Property {
	return p.add(&Property{Name: name, Kind: PropInt, Value: cty.NumberIntVal(int64(v))})
}

func (p *Properties) AddVector(name string, x, y, z float64) *Property {
	return p.add(&Property{Name: name, Kind: PropVector, Value: Vec3(x, y, z)})
}

// AddEnum declares an enum defaulting to def, which must be one of choices.
func (p *Properties) AddEnum(name string, choices []string, def string) *Property {
	if !slices.Contains(choices, def) {
		panic(fmt.Sprintf("graph: enum %q default %q not in %v", name, def, choices))
	}
	return p.add(&Property{Name: name, Kind: PropEnum, Value: cty.StringVal(def), Choices: choices})
}

func (p *Properties) AddString(name, v string) *Property {
	return p.add(&Property{Name: name, Kind: PropString, Value: cty.StringVal(v)})
}

// Get returns the property named name, or nil.
func (p *Properties) Get(name string) *Property {
	for _, prop := range p.list {
		if prop.Name == name {
			return prop
		}
	}
	return nil
}

// List returns the properties in declaration order.
func (p *Properties) List() []*Property {
	return p.list
}

// Set converts v to the property's type and stores it. Strings holding
// numbers, tuples of three numbers and similar convertible values are
// accepted.
func (p *Properties) Set(name string, v cty.Value) error {
	prop := p.Get(name)
	if prop == nil {
		return fmt.Errorf("no property %q", name)
	}
	if v.IsNull() || !v.IsWhollyKnown() {
		return fmt.Errorf("property %q: value must be known and non-null", name)
	}
	cv, err := convert.Convert(v, prop.Kind.ctyType())
	if err != nil {
		return fmt.Errorf("property %q: %w", name, err)
	}
	switch prop.Kind {
	case PropInt:
		if !cv.AsBigFloat().IsInt() {
			return fmt.Errorf("property %q: %s is not an integer", name, cv.AsBigFloat().String())
		}
	case PropVector:
		if n := cv.LengthInt(); n != 3 {
			return fmt.Errorf("property %q: want 3 components, got %d", name, n)
		}
	case PropEnum:
		if !slices.Contains(prop.Choices, cv.AsString()) {
			return fmt.Errorf("property %q: %q is not one of %v", name, cv.AsString(), prop.Choices)
		}
	}
	prop.Value = cv
	return nil
}

// Scalar returns a numeric property as float64, zero if absent.
func (p *Properties) Scalar(name string) float64 {
	var f float64
	if prop := p.Get(name); prop != nil && prop.Value.Type() == cty.Number {
		_ = gocty.FromCtyValue(prop.Value, &f)
	}
	return f
}

// Int returns an integer property, zero if absent.
func (p *Properties) Int(name string) int {
	var i int
	if prop := p.Get(name); prop != nil && prop.Value.Type() == cty.Number {
		_ = gocty.FromCtyValue(prop.Value, &i)
	}
	return i
}

// Vector returns a vector property, zero if absent.
func (p *Properties) Vector(name string) [3]float64 {
	var out [3]float64
	prop := p.Get(name)
	if prop == nil || !prop.Value.Type().IsListType() {
		return out
	}
	var vals []float64
	if err := gocty.FromCtyValue(prop.Value, &vals); err != nil {
		return out
	}
	copy(out[:], vals)
	return out
}

// Text returns an enum or string property, empty if absent.
func (p *Properties) Text(name string) string {
	if prop := p.Get(name); prop != nil && prop.Value.Type() == cty.String {
		return prop.Value.AsString()
	}
	return ""
}

// Vec3 builds the cty value used for vector properties.
func Vec3(x, y, z float64) cty.Value {
	return cty.ListVal([]cty.Value{cty.NumberFloatVal(x), cty.NumberFloatVal(y), cty.NumberFloatVal(z)})
}
