package models

// WordLog is a single log-structured word count entry
type WordLog struct {
	ID        int64  `json:"id" db:"id"`
	UserID    string `json:"user_id" db:"user_id"`
	WordCount int    `json:"word_count" db:"word_count"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// DayCount is one entry of a dense per-day series
type DayCount struct {
	Date  string `json:"date"`
	Words int    `json:"words"`
}
