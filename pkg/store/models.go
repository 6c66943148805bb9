package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type EntryModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"not null;index"`
	Title     string
	Content   string `gorm:"type:text;not null"`
	Mood      string
	MoodScore *int
	Private   bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ReplyModel struct {
	ID                string         `gorm:"primaryKey"`
	EntryID           string         `gorm:"not null;index"`
	Response          string         `gorm:"type:text;not null"`
	FollowUpQuestions datatypes.JSON `gorm:"type:jsonb"`
	Insights          datatypes.JSON `gorm:"type:jsonb"`
	EmpathyScore      int            `gorm:"not null"`
	Kind              string         `gorm:"not null"`
	CreatedAt         time.Time      `gorm:"not null;index"`
}

type InsightModel struct {
	ID          string    `gorm:"primaryKey"`
	OwnerID     string    `gorm:"not null;index"`
	Category    string    `gorm:"not null"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"type:text;not null"`
	Confidence  int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

type AdviceModel struct {
	ID         string `gorm:"primaryKey"`
	OwnerID    string `gorm:"not null;index"`
	Topic      string
	Request    string         `gorm:"type:text;not null"`
	Response   string         `gorm:"type:text"`
	Techniques datatypes.JSON `gorm:"type:jsonb"`
	Plan       string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}
