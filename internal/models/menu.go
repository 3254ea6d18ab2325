package models

import (
	"strings"

	"gorm.io/gorm"
)

// Category groups products on the menu. Subcategories point at their parent.
type Category struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id" gorm:"index"`
	SortOrder   int    `json:"sort_order" gorm:"default:0"`
}

// Product is a sellable menu item
type Product struct {
	gorm.Model
	CategoryID  uint    `json:"category_id" gorm:"index;not null"`
	Name        string  `json:"name" gorm:"not null"`
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null"`
	Available   bool    `json:"available" gorm:"not null"`
}

// BeforeCreate trims names coming from seeds and the admin API
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	return nil
}
