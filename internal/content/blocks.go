// Package content exposes the prose-bearing text of an article's block tree
// and the anchor-tag grammar used to read and rewrite links inside it.
package content

import (
	"interlink/internal/core"
)

// Span is one mutable prose string inside a block.
type Span struct {
	BlockIndex int            // Position of the block in the article
	BlockID    string         // Stable block identifier
	Kind       core.BlockType // Kind of the owning block
	Item       int            // Index within list/accordion items, -1 for single-text blocks
	Text       string         // Current text of the span
}

// ButtonLink is the call-to-action target carried by a button block.
type ButtonLink struct {
	BlockID string
	URL     string
	Caption string
	NewTab  bool
}

// Spans returns every prose-bearing string of blocks in tree order:
// paragraph text, string list items, callout text, accordion answers and
// button captions.
func Spans(blocks []core.Block) []Span {
	var spans []Span
	for i, b := range blocks {
		if b.Data == nil {
			continue
		}
		switch b.Type {
		case core.BlockParagraph, core.BlockCallout, core.BlockButton:
			if text, ok := b.Data["text"].(string); ok {
				spans = append(spans, Span{BlockIndex: i, BlockID: b.ID, Kind: b.Type, Item: -1, Text: text})
			}
		case core.BlockList:
			for j, item := range listItems(b.Data["items"]) {
				if text, ok := item.(string); ok {
					spans = append(spans, Span{BlockIndex: i, BlockID: b.ID, Kind: b.Type, Item: j, Text: text})
				}
			}
		case core.BlockAccordion:
			for j, item := range listItems(b.Data["items"]) {
				entry, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if answer, ok := entry["answer"].(string); ok {
					spans = append(spans, Span{BlockIndex: i, BlockID: b.ID, Kind: b.Type, Item: j, Text: answer})
				}
			}
		}
	}
	return spans
}

// SetSpan writes text back into the location described by span.
// Only that one string is replaced; the rest of the block is untouched.
func SetSpan(blocks []core.Block, span Span, text string) {
	if span.BlockIndex < 0 || span.BlockIndex >= len(blocks) {
		return
	}
	data := blocks[span.BlockIndex].Data
	if data == nil {
		return
	}

	if span.Item < 0 {
		data["text"] = text
		return
	}

	switch items := data["items"].(type) {
	case []interface{}:
		if span.Item >= len(items) {
			return
		}
		if span.Kind == core.BlockAccordion {
			if entry, ok := items[span.Item].(map[string]interface{}); ok {
				entry["answer"] = text
			}
			return
		}
		items[span.Item] = text
	case []string:
		if span.Item < len(items) {
			items[span.Item] = text
		}
	case []map[string]interface{}:
		if span.Item < len(items) {
			items[span.Item]["answer"] = text
		}
	}
}

// ButtonLinks returns the url targets of button blocks.
func ButtonLinks(blocks []core.Block) []ButtonLink {
	var links []ButtonLink
	for _, b := range blocks {
		if b.Type != core.BlockButton || b.Data == nil {
			continue
		}
		url, _ := b.Data["url"].(string)
		if url == "" {
			continue
		}
		caption, _ := b.Data["text"].(string)
		newTab, _ := b.Data["newTab"].(bool)
		links = append(links, ButtonLink{BlockID: b.ID, URL: url, Caption: caption, NewTab: newTab})
	}
	return links
}

// ClearButtonURL drops the url target of the button block with the given id.
// The caption stays. It reports whether a target was cleared.
func ClearButtonURL(blocks []core.Block, blockID string) bool {
	for _, b := range blocks {
		if b.Type != core.BlockButton || b.ID != blockID || b.Data == nil {
			continue
		}
		if url, _ := b.Data["url"].(string); url == "" {
			return false
		}
		delete(b.Data, "url")
		delete(b.Data, "newTab")
		return true
	}
	return false
}

// PlainText joins all prose spans with newlines. Used for diagnostics.
func PlainText(blocks []core.Block) string {
	var out []byte
	for i, s := range Spans(blocks) {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, s.Text...)
	}
	return string(out)
}

func listItems(v interface{}) []interface{} {
	switch items := v.(type) {
	case []interface{}:
		return items
	case []string:
		out := make([]interface{}, len(items))
		for i, s := range items {
			out[i] = s
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(items))
		for i, m := range items {
			out[i] = m
		}
		return out
	}
	return nil
}
