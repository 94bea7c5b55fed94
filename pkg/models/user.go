package models

// AccessCode is a one-time code that grants a fresh identity when redeemed
type AccessCode struct {
	ID       int64  `json:"id" db:"id"`
	Code     string `json:"code" db:"code"`
	CodeType string `json:"code_type" db:"code_type"`
	IsUsed   bool   `json:"is_used" db:"is_used"`
	UsedAt   string `json:"used_at,omitempty" db:"used_at"`
	UserID   string `json:"user_id,omitempty" db:"user_id"`
}
