package models

import (
	"strings"

	"gorm.io/gorm"
)

// Customer is identified by the WhatsApp number that placed the order
type Customer struct {
	gorm.Model
	Phone string `json:"phone" gorm:"uniqueIndex;not null"`
	Name  string `json:"name"`
}

// BeforeCreate normalizes the stored name
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	return nil
}
