package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Room struct {
	ID          int64           `yaml:"id" json:"id"`
	Number      string          `yaml:"number" json:"number"`
	Type        string          `yaml:"type" json:"type"` // single, double, suite
	Capacity    int             `yaml:"capacity" json:"capacity"`
	Rate        decimal.Decimal `yaml:"rate" json:"rate"`
	IsAvailable bool            `yaml:"is_available" json:"is_available"`
	CreatedAt   time.Time       `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `yaml:"updated_at" json:"updated_at"`
}
