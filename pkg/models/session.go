package models

// TypingSession records one finished retyping attempt
type TypingSession struct {
	ID               int64  `json:"id" db:"id"`
	UserID           string `json:"user_id" db:"user_id"`
	ContentSetID     string `json:"content_set_id,omitempty" db:"content_set_id"`
	ContentID        string `json:"content_id,omitempty" db:"content_id"`
	OriginalText     string `json:"original_text" db:"original_text"`
	TypedText        string `json:"typed_text" db:"typed_text"`
	WordCount        int    `json:"word_count" db:"word_count"`
	TimeSpentSeconds int    `json:"time_spent_seconds" db:"time_spent_seconds"`
	Timestamp        string `json:"timestamp" db:"timestamp"`
}
