package models

// ContentType identifies which kind of item a progress record refers to
type ContentType string

const (
	ContentParagraph ContentType = "paragraph"
	ContentWisdom    ContentType = "wisdom"
)

// Valid reports whether t is one of the known content types
func (t ContentType) Valid() bool {
	return t == ContentParagraph || t == ContentWisdom
}

// ContentSet is an ordered group of paragraphs plus its wisdom sections
type ContentSet struct {
	ID         string          `json:"id" db:"id"`
	Title      string          `json:"title" db:"title"`
	Subtitle   string          `json:"subtitle" db:"subtitle"`
	Paragraphs []Paragraph     `json:"paragraphs" db:"-"`
	Wisdom     []WisdomSection `json:"wisdom_sections" db:"-"`
}

// Paragraph is one retyping unit of a content set
type Paragraph struct {
	ID           string `json:"id" db:"id"`
	ContentSetID string `json:"content_set_id" db:"content_set_id"`
	OrderIndex   int    `json:"order_index" db:"order_index"`
	Content      string `json:"content" db:"content"`
	Completed    bool   `json:"completed" db:"-"`
}

// WisdomSection is a short excerpt shown once the paragraphs are done
type WisdomSection struct {
	ID           string `json:"id" db:"id"`
	ContentSetID string `json:"content_set_id" db:"content_set_id"`
	Type         string `json:"type" db:"type"` // category tag, e.g. "quote"
	Title        string `json:"title" db:"title"`
	Content      string `json:"content" db:"content"`
	Completed    bool   `json:"completed" db:"-"`
}
