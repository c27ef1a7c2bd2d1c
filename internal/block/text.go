package block

import (
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

// PlainText concatenates every rich-text run of the block's content field,
// in run order, and NFC-normalizes the result so comparisons are stable
// regardless of how the store composed accents or emoji.
//
// Dispatch is keyed on the block's own type tag: whichever content object
// that tag names is the one searched for rich text. Blocks whose content
// carries no rich text (dividers, images) yield the empty string.
func PlainText(b Block) string {
	content := b.Content()
	if !content.Exists() {
		return ""
	}

	runs := content.Get("rich_text")
	if !runs.Exists() {
		// child_page and child_database keep their text under "title"
		// as a plain string.
		if title := content.Get("title"); title.Type == gjson.String {
			return norm.NFC.String(title.String())
		}
		return ""
	}

	var sb strings.Builder
	runs.ForEach(func(_, run gjson.Result) bool {
		sb.WriteString(run.Get("plain_text").String())
		return true
	})
	return norm.NFC.String(sb.String())
}

// JoinTitle flattens a rich-text array (the page/database title form) into
// a single NFC-normalized string.
func JoinTitle(runs gjson.Result) string {
	var sb strings.Builder
	runs.ForEach(func(_, run gjson.Result) bool {
		sb.WriteString(run.Get("plain_text").String())
		return true
	})
	return norm.NFC.String(sb.String())
}
