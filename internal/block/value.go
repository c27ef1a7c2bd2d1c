package block

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// TypedValue is a sealed interface over the property value types the engine
// understands. Only the types in this file implement it.
//
// Absent is an explicit variant, not a nil: callers can always distinguish
// "property missing" from "property present but empty".
type TypedValue interface {
	typedValue() // Sealed - only these types implement it
}

// Absent marks a property name that does not exist on the page.
type Absent struct{}

func (Absent) typedValue() {}

// Title is the flattened plain text of a title property.
type Title string

func (Title) typedValue() {}

// RichText is the flattened plain text of a rich_text property.
type RichText string

func (RichText) typedValue() {}

// Select is a single-select property value.
type Select struct {
	Name  string
	Color string
}

func (Select) typedValue() {}

// MultiSelect is the set of selected option names. Order as returned by the
// store; compare as a set.
type MultiSelect []string

func (MultiSelect) typedValue() {}

// Number is a numeric property value.
type Number float64

func (Number) typedValue() {}

// Date is a date property value. End is empty for single dates.
type Date struct {
	Start string
	End   string
}

func (Date) typedValue() {}

// Relation is the set of related page ids.
type Relation []string

func (Relation) typedValue() {}

// Checkbox is a checkbox property value.
type Checkbox bool

func (Checkbox) typedValue() {}

// Status is a status property value (the option name).
type Status string

func (Status) typedValue() {}

// Rollup wraps the aggregated value of a rollup property.
type Rollup struct {
	Value TypedValue
}

func (Rollup) typedValue() {}

// Unknown carries a property type outside the closed set, with its raw JSON
// preserved so diagnostics can still show it.
type Unknown struct {
	Type string
	Raw  string
}

func (Unknown) typedValue() {}

// PropertyValue resolves a named property on a page object into a
// TypedValue. Missing names return Absent, never a nil-equivalent.
func PropertyValue(page gjson.Result, name string) TypedValue {
	prop := page.Get("properties").Get(escapeGJSONPath(name))
	if !prop.Exists() {
		return Absent{}
	}
	return decodeProperty(prop)
}

// decodeProperty dispatches on the property's own type tag.
func decodeProperty(prop gjson.Result) TypedValue {
	ptype := prop.Get("type").String()
	payload := prop.Get(ptype)

	switch ptype {
	case "title":
		return Title(JoinTitle(payload))
	case "rich_text":
		return RichText(JoinTitle(payload))
	case "select":
		if payload.Type == gjson.Null {
			return Select{}
		}
		return Select{
			Name:  payload.Get("name").String(),
			Color: payload.Get("color").String(),
		}
	case "multi_select":
		var names []string
		payload.ForEach(func(_, opt gjson.Result) bool {
			names = append(names, opt.Get("name").String())
			return true
		})
		return MultiSelect(names)
	case "number":
		return Number(payload.Float())
	case "date":
		if payload.Type == gjson.Null {
			return Date{}
		}
		return Date{
			Start: payload.Get("start").String(),
			End:   payload.Get("end").String(),
		}
	case "relation":
		var ids []string
		payload.ForEach(func(_, rel gjson.Result) bool {
			ids = append(ids, rel.Get("id").String())
			return true
		})
		return Relation(ids)
	case "checkbox":
		return Checkbox(payload.Bool())
	case "status":
		if payload.Type == gjson.Null {
			return Status("")
		}
		return Status(payload.Get("name").String())
	case "rollup":
		return Rollup{Value: decodeRollup(payload)}
	default:
		return Unknown{Type: ptype, Raw: prop.Raw}
	}
}

// decodeRollup resolves the aggregated value inside a rollup payload.
// Array rollups collapse to their first element; empty arrays are Absent.
func decodeRollup(payload gjson.Result) TypedValue {
	switch rtype := payload.Get("type").String(); rtype {
	case "number":
		return Number(payload.Get("number").Float())
	case "date":
		d := payload.Get("date")
		if d.Type == gjson.Null {
			return Absent{}
		}
		return Date{Start: d.Get("start").String(), End: d.Get("end").String()}
	case "array":
		arr := payload.Get("array").Array()
		if len(arr) == 0 {
			return Absent{}
		}
		return decodeProperty(arr[0])
	default:
		return Unknown{Type: rtype, Raw: payload.Raw}
	}
}

// Describe renders a TypedValue for diagnostics.
func Describe(v TypedValue) string {
	switch val := v.(type) {
	case Absent:
		return "<absent>"
	case Title:
		return fmt.Sprintf("title %q", string(val))
	case RichText:
		return fmt.Sprintf("text %q", string(val))
	case Select:
		return fmt.Sprintf("select %q", val.Name)
	case MultiSelect:
		return fmt.Sprintf("multi_select [%s]", strings.Join(val, ", "))
	case Number:
		return fmt.Sprintf("number %g", float64(val))
	case Date:
		if val.End != "" {
			return fmt.Sprintf("date %s..%s", val.Start, val.End)
		}
		return fmt.Sprintf("date %s", val.Start)
	case Relation:
		return fmt.Sprintf("relation (%d ids)", len(val))
	case Checkbox:
		return fmt.Sprintf("checkbox %t", bool(val))
	case Status:
		return fmt.Sprintf("status %q", string(val))
	case Rollup:
		return fmt.Sprintf("rollup(%s)", Describe(val.Value))
	case Unknown:
		return fmt.Sprintf("unknown type %q", val.Type)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeGJSONPath escapes property names so dots and wildcards in user-facing
// names ("Q1.Budget") address a single key rather than a gjson path.
func escapeGJSONPath(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(name)
}
