package suite

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// schemaSource is the CUE schema every suite file must satisfy before the
// runner touches it. Validating up front turns YAML typos into precise
// positioned errors instead of zero-valued checks that silently pass.
const schemaSource = `
#TextMatch: {
	equals?:   string
	contains?: string
	pattern?:  string
}

#Step: {
	kind: string
	text: #TextMatch
}

#Marker: {
	kind?: string
	text:  #TextMatch
}

#Scope: {
	start?:       #Marker
	end?:         #Marker
	children_of?: string
}

#CountRule: {
	kind:     string
	exactly?: int & >=0
	at_least?: int & >=0
	checked?: bool
}

#FieldFormat: {
	separator: string
	parts: [...string]
}

#FormatRule: {
	kind:     string
	only?:    #TextMatch
	pattern?: string
	fields?:  #FieldFormat
}

#TodoItem: {
	text:    #TextMatch
	checked: bool | *false
}

#TodoRule: {
	items: [...#TodoItem]
	exact: bool | *false
}

#Motif: {
	name?:  string
	scope?: #Scope
	headings?: [...#Step]
	counts?: [...#CountRule]
	formats?: [...#FormatRule]
	todos?: #TodoRule
	summary?: [...string]
}

#QuerySpec: {
	sql?: string
	args?: [...]
	table?: string
	where?: {...}
	order_by?: [...string]
}

#SortKey: {
	column: string
	desc?:  bool
}

#RowCheck: {
	actual:     #QuerySpec
	expected:   #QuerySpec
	mode?:      "ordered" | "unordered"
	tolerance?: number & >=0
	key?: [...string]
	sorted_by?: [...#SortKey]
	max_mismatches?: int & >=0
}

#Check: {
	name:   string & !=""
	motif?: #Motif
	rows?:  #RowCheck
}

name: string & !=""
notion?: {
	page_id?:    string
	page_title?: string
}
database?: {
	driver: "pgx" | "sqlite3"
}
checks: [...#Check]
`

// ValidateYAML checks a raw suite file against the embedded schema.
// filename is used only for error positions.
func ValidateYAML(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("suite-schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build yaml: %w", err)
	}

	if err := schema.Unify(doc).Validate(); err != nil {
		return fmt.Errorf("suite does not satisfy schema: %w", err)
	}
	return nil
}
