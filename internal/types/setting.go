package types

import "time"

type Setting struct {
	Key       string    `gorm:"type:varchar(120);primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }
