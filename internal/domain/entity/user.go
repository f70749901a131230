package entity

import "time"

// User учётная запись пользователя API
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryRecord сохранённый анализ пользователя
type HistoryRecord struct {
	ID              int64
	UserID          int64
	PerUserIndex    int // порядковый номер внутри аккаунта: 1, 2, 3...
	ImageFilename   string
	ImageBase64     string // аннотированный PNG, может быть пустым
	ModelUsed       string
	Confidence      float64
	TotalDetections int
	CariesCount     int
	ImpactedCount   int
	BoneLossCount   int
	ResultsJSON     string
	TeethFDIJSON    string
	ReportText      string
	CreatedAt       time.Time
}
