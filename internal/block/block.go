// Package block models nodes of a hierarchical document store (Notion-style
// blocks and pages) as read-only records.
//
// A Block keeps its raw JSON payload alongside a normalized Kind so content
// access can dispatch on the block's own type tag instead of a fixed field
// name. Kinds the engine does not recognize degrade to KindUnknown with the
// raw tag preserved - they are carried, never dropped.
package block

import (
	"github.com/tidwall/gjson"
)

// Kind is the closed set of block kinds the engine understands.
type Kind string

const (
	KindParagraph        Kind = "paragraph"
	KindHeading1         Kind = "heading_1"
	KindHeading2         Kind = "heading_2"
	KindHeading3         Kind = "heading_3"
	KindBulletedListItem Kind = "bulleted_list_item"
	KindNumberedListItem Kind = "numbered_list_item"
	KindToDo             Kind = "to_do"
	KindToggle           Kind = "toggle"
	KindQuote            Kind = "quote"
	KindCallout          Kind = "callout"
	KindDivider          Kind = "divider"
	KindColumnList       Kind = "column_list"
	KindColumn           Kind = "column"
	KindTable            Kind = "table"
	KindTableRow         Kind = "table_row"
	KindChildPage        Kind = "child_page"
	KindChildDatabase    Kind = "child_database"
	KindCode             Kind = "code"
	KindBookmark         Kind = "bookmark"
	KindImage            Kind = "image"

	// KindUnknown marks a type tag outside the closed set. The raw tag
	// stays available on Block.RawType.
	KindUnknown Kind = "unknown"
)

var knownKinds = map[string]Kind{
	string(KindParagraph):        KindParagraph,
	string(KindHeading1):         KindHeading1,
	string(KindHeading2):         KindHeading2,
	string(KindHeading3):         KindHeading3,
	string(KindBulletedListItem): KindBulletedListItem,
	string(KindNumberedListItem): KindNumberedListItem,
	string(KindToDo):             KindToDo,
	string(KindToggle):           KindToggle,
	string(KindQuote):            KindQuote,
	string(KindCallout):          KindCallout,
	string(KindDivider):          KindDivider,
	string(KindColumnList):       KindColumnList,
	string(KindColumn):           KindColumn,
	string(KindTable):            KindTable,
	string(KindTableRow):         KindTableRow,
	string(KindChildPage):        KindChildPage,
	string(KindChildDatabase):    KindChildDatabase,
	string(KindCode):             KindCode,
	string(KindBookmark):         KindBookmark,
	string(KindImage):            KindImage,
}

// KindOf normalizes a raw type tag. Unrecognized tags map to KindUnknown.
func KindOf(raw string) Kind {
	if k, ok := knownKinds[raw]; ok {
		return k
	}
	return KindUnknown
}

// IsHeading reports whether the kind is any heading level.
func (k Kind) IsHeading() bool {
	return k == KindHeading1 || k == KindHeading2 || k == KindHeading3
}

// IsContainer reports whether children of this kind cannot be attributed by
// flat-list position alone and must be re-fetched by parent id.
func (k Kind) IsContainer() bool {
	switch k {
	case KindColumnList, KindColumn, KindToggle, KindTable, KindChildDatabase:
		return true
	}
	return false
}

// Parent is a weak reference to a block's parent - relation only, no
// ownership.
type Parent struct {
	Type string // "page_id", "block_id", "database_id", "workspace"
	ID   string
}

// Block is one node of a snapshot. Blocks are produced fresh on every read
// and never mutated; the raw payload is retained for polymorphic access.
type Block struct {
	ID          string
	Kind        Kind
	RawType     string
	HasChildren bool
	Parent      Parent

	// Depth is the distance from the snapshot root (root children are 0).
	// Assigned during traversal, zero for blocks parsed in isolation.
	Depth int

	raw gjson.Result
}

// Parse decodes one block object from store JSON.
func Parse(data []byte) Block {
	return FromJSON(gjson.ParseBytes(data))
}

// FromJSON builds a Block from an already-parsed JSON result.
func FromJSON(r gjson.Result) Block {
	rawType := r.Get("type").String()
	b := Block{
		ID:          r.Get("id").String(),
		Kind:        KindOf(rawType),
		RawType:     rawType,
		HasChildren: r.Get("has_children").Bool(),
		raw:         r,
	}
	parent := r.Get("parent")
	if parent.Exists() {
		ptype := parent.Get("type").String()
		b.Parent = Parent{Type: ptype, ID: parent.Get(ptype).String()}
	}
	return b
}

// Content returns the JSON object stored under the block's own type tag.
// This is the polymorphic payload: paragraph text lives under "paragraph",
// to-do state under "to_do", and so on.
func (b Block) Content() gjson.Result {
	return b.raw.Get(b.RawType)
}

// Raw exposes the full decoded payload for callers that need fields the
// typed accessors do not cover.
func (b Block) Raw() gjson.Result {
	return b.raw
}

// Checked returns the checkbox state of a to_do block.
// The second return is false for any other kind.
func (b Block) Checked() (bool, bool) {
	if b.Kind != KindToDo {
		return false, false
	}
	return b.Content().Get("checked").Bool(), true
}

// ChildTitle returns the title of a child_page or child_database block.
func (b Block) ChildTitle() string {
	if b.Kind != KindChildPage && b.Kind != KindChildDatabase {
		return ""
	}
	return b.Content().Get("title").String()
}
