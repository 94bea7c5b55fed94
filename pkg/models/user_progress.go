package models

// ProgressRecord is the completion state of one content item for one user
type ProgressRecord struct {
	ID          int64       `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	ContentID   string      `json:"content_id" db:"content_id"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	Completed   bool        `json:"completed" db:"completed"`
	CompletedAt string      `json:"completed_at,omitempty" db:"completed_at"`
}
