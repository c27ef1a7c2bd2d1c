package block

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParse_Paragraph(t *testing.T) {
	data := []byte(`{
		"id": "blk-1",
		"type": "paragraph",
		"has_children": false,
		"parent": {"type": "page_id", "page_id": "page-9"},
		"paragraph": {"rich_text": [{"plain_text": "hello"}]}
	}`)

	b := Parse(data)
	assert.Equal(t, "blk-1", b.ID)
	assert.Equal(t, KindParagraph, b.Kind)
	assert.Equal(t, "paragraph", b.RawType)
	assert.False(t, b.HasChildren)
	assert.Equal(t, Parent{Type: "page_id", ID: "page-9"}, b.Parent)
}

func TestParse_UnknownKindDegradesGracefully(t *testing.T) {
	data := []byte(`{"id": "blk-2", "type": "synced_block", "synced_block": {}}`)

	b := Parse(data)
	assert.Equal(t, KindUnknown, b.Kind)
	// The raw tag survives so content dispatch still works.
	assert.Equal(t, "synced_block", b.RawType)
	assert.True(t, b.Content().Exists())
}

func TestPlainText_ConcatenatesRunsInOrder(t *testing.T) {
	// Reassembling from N fragments must equal the concatenation of the
	// fragment texts with no reordering.
	fragments := []string{"The ", "quick", " brown", " fox"}
	runs := ""
	for i, f := range fragments {
		if i > 0 {
			runs += ","
		}
		runs += fmt.Sprintf(`{"plain_text": %q}`, f)
	}
	data := []byte(`{"id": "b", "type": "paragraph", "paragraph": {"rich_text": [` + runs + `]}}`)

	assert.Equal(t, "The quick brown fox", PlainText(Parse(data)))
}

func TestPlainText_DispatchesOnOwnTypeTag(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "heading_2",
			json: `{"id":"b","type":"heading_2","heading_2":{"rich_text":[{"plain_text":"Day 1"}]}}`,
			want: "Day 1",
		},
		{
			name: "to_do",
			json: `{"id":"b","type":"to_do","to_do":{"rich_text":[{"plain_text":"pack bags"}],"checked":true}}`,
			want: "pack bags",
		},
		{
			name: "divider has no text",
			json: `{"id":"b","type":"divider","divider":{}}`,
			want: "",
		},
		{
			name: "child_page title",
			json: `{"id":"b","type":"child_page","child_page":{"title":"Itinerary"}}`,
			want: "Itinerary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(Parse([]byte(tt.json))))
		})
	}
}

func TestPlainText_NFCNormalization(t *testing.T) {
	// "é" as e + combining acute must equal the precomposed form.
	decomposed := `{"id":"b","type":"paragraph","paragraph":{"rich_text":[{"plain_text":"Café"}]}}`
	precomposed := `{"id":"b","type":"paragraph","paragraph":{"rich_text":[{"plain_text":"Café"}]}}`

	assert.Equal(t, PlainText(Parse([]byte(precomposed))), PlainText(Parse([]byte(decomposed))))
}

func TestChecked(t *testing.T) {
	todo := Parse([]byte(`{"id":"b","type":"to_do","to_do":{"checked":true}}`))
	checked, ok := todo.Checked()
	assert.True(t, ok)
	assert.True(t, checked)

	para := Parse([]byte(`{"id":"b","type":"paragraph","paragraph":{}}`))
	_, ok = para.Checked()
	assert.False(t, ok)
}

func TestKind_IsContainer(t *testing.T) {
	assert.True(t, KindColumnList.IsContainer())
	assert.True(t, KindToggle.IsContainer())
	assert.False(t, KindParagraph.IsContainer())
	assert.False(t, KindHeading1.IsContainer())
}

const pageJSON = `{
	"id": "page-1",
	"properties": {
		"Name": {"type": "title", "title": [{"plain_text": "Kyoto "}, {"plain_text": "Trip"}]},
		"City": {"type": "select", "select": {"name": "Kyoto", "color": "red"}},
		"Tags": {"type": "multi_select", "multi_select": [{"name": "food"}, {"name": "temple"}]},
		"Cost": {"type": "number", "number": 120.5},
		"When": {"type": "date", "date": {"start": "2022-09-02", "end": null}},
		"Trip": {"type": "relation", "relation": [{"id": "rel-1"}, {"id": "rel-2"}]},
		"Visited": {"type": "checkbox", "checkbox": true},
		"Phase": {"type": "status", "status": {"name": "Done"}},
		"Total": {"type": "rollup", "rollup": {"type": "number", "number": 8}},
		"Empty": {"type": "select", "select": null},
		"Weird": {"type": "formula", "formula": {"type": "string", "string": "x"}}
	}
}`

func TestPropertyValue(t *testing.T) {
	page := gjson.Parse(pageJSON)

	tests := []struct {
		name string
		prop string
		want TypedValue
	}{
		{"title concatenates runs", "Name", Title("Kyoto Trip")},
		{"select", "City", Select{Name: "Kyoto", Color: "red"}},
		{"multi_select", "Tags", MultiSelect{"food", "temple"}},
		{"number", "Cost", Number(120.5)},
		{"date", "When", Date{Start: "2022-09-02"}},
		{"relation", "Trip", Relation{"rel-1", "rel-2"}},
		{"checkbox", "Visited", Checkbox(true)},
		{"status", "Phase", Status("Done")},
		{"rollup wraps aggregate", "Total", Rollup{Value: Number(8)}},
		{"null select is present but empty", "Empty", Select{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PropertyValue(page, tt.prop))
		})
	}
}

func TestPropertyValue_MissingIsAbsentNotEmpty(t *testing.T) {
	page := gjson.Parse(pageJSON)

	// Missing name: explicit Absent.
	v := PropertyValue(page, "NoSuchProperty")
	require.IsType(t, Absent{}, v)

	// Present but empty select: NOT Absent.
	v = PropertyValue(page, "Empty")
	require.IsType(t, Select{}, v)
}

func TestPropertyValue_UnknownTypePreservesRaw(t *testing.T) {
	v := PropertyValue(gjson.Parse(pageJSON), "Weird")
	u, ok := v.(Unknown)
	require.True(t, ok)
	assert.Equal(t, "formula", u.Type)
	assert.NotEmpty(t, u.Raw)
}

func TestPropertyValue_NameWithDot(t *testing.T) {
	page := gjson.Parse(`{"properties": {"Q1.Budget": {"type": "number", "number": 42}}}`)
	assert.Equal(t, Number(42), PropertyValue(page, "Q1.Budget"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "<absent>", Describe(Absent{}))
	assert.Equal(t, `select "Kyoto"`, Describe(Select{Name: "Kyoto"}))
	assert.Equal(t, "rollup(number 8)", Describe(Rollup{Value: Number(8)}))
	assert.Equal(t, "date 2022-09-02", Describe(Date{Start: "2022-09-02"}))
	assert.Equal(t, "date 2022-09-02..2022-09-05", Describe(Date{Start: "2022-09-02", End: "2022-09-05"}))
}
