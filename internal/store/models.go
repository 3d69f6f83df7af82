package store

import "time"

type DraftRecord struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Code        string       `json:"code" gorm:"index;not null"`
	CompletedAt time.Time    `json:"completed_at" gorm:"not null"`
	CreatedAt   time.Time    `json:"created_at"`
	Teams       []TeamRecord `json:"teams" gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
}

type TeamRecord struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	DraftID   uint         `json:"draft_id" gorm:"index;not null"`
	Position  int          `json:"position" gorm:"not null"`
	CoachName string       `json:"coach_name" gorm:"not null"`
	Picks     []PickRecord `json:"picks" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
}

type PickRecord struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	TeamID     uint   `json:"team_id" gorm:"index;not null"`
	Position   int    `json:"position" gorm:"not null"`
	PlayerName string `json:"player_name" gorm:"not null"`
	GroupTag   string `json:"group_tag"`
}
