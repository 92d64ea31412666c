package core

import "time"

// BlockType identifies the kind of a content block.
type BlockType string

// Block kinds supported by the article editor.
const (
	BlockParagraph       BlockType = "paragraph"
	BlockHeading         BlockType = "heading"
	BlockQuote           BlockType = "quote"
	BlockList            BlockType = "list"
	BlockChecklist       BlockType = "checklist"
	BlockProsCons        BlockType = "proscons"
	BlockImage           BlockType = "image"
	BlockGallery         BlockType = "gallery"
	BlockVideo           BlockType = "video"
	BlockEmbed           BlockType = "embed"
	BlockTable           BlockType = "table"
	BlockStats           BlockType = "stats"
	BlockAccordion       BlockType = "accordion"
	BlockButton          BlockType = "button"
	BlockTableOfContents BlockType = "tableOfContents"
	BlockCode            BlockType = "code"
	BlockCallout         BlockType = "callout"
	BlockDivider         BlockType = "divider"
)

// Article status values
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Block is a single typed node of an article's content.
// Data is kept as a generic JSON object so fields this package does not know
// about survive a read/modify/write cycle.
type Block struct {
	ID   string                 `json:"id"`   // Stable identifier, unique within the article
	Type BlockType              `json:"type"` // Block kind
	Data map[string]interface{} `json:"data"` // Kind-specific payload
}

// Article is a long-form post owned by the authoring subsystem.
// The linking engine only reads Title/Excerpt/CategoryID and mutates Content.
type Article struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategorySlug string    `json:"category_slug,omitempty"` // Joined from the category table when available
	Content      []Block   `json:"content"`
	Status       string    `json:"status"`
	ReadingTime  int       `json:"reading_time"` // Minutes; zero when unknown
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ArticleSummary is the light projection of an article used for listings.
type ArticleSummary struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	CategoryID   string    `json:"category_id,omitempty"`
	CategorySlug string    `json:"category_slug,omitempty"`
	Status       string    `json:"status"`
	ReadingTime  int       `json:"reading_time"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary returns the listing projection of a.
func (a *Article) Summary() ArticleSummary {
	return ArticleSummary{
		ID:           a.ID,
		Slug:         a.Slug,
		Title:        a.Title,
		CategoryID:   a.CategoryID,
		CategorySlug: a.CategorySlug,
		Status:       a.Status,
		ReadingTime:  a.ReadingTime,
		CreatedAt:    a.CreatedAt,
	}
}

// CloneBlocks returns a deep copy of blocks so callers can mutate freely.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = Block{ID: b.ID, Type: b.Type}
		if b.Data != nil {
			out[i].Data = cloneValue(b.Data).(map[string]interface{})
		}
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []string:
		s := make([]string, len(t))
		copy(s, t)
		return s
	default:
		return v
	}
}
