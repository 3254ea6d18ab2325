package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

// SeedMenu loads the menu from the restaurant profile into the store.
// It returns the number of products created.
func SeedMenu(ctx context.Context, s MenuSeeder, menu []config.MenuCategory) (int, error) {
	created := 0
	for i, mc := range menu {
		category := &models.Category{
			Name:        mc.Name,
			Description: mc.Description,
			SortOrder:   i,
		}
		if err := s.AddCategory(ctx, category); err != nil {
			return created, fmt.Errorf("seed category %q: %w", mc.Name, err)
		}
		for _, mp := range mc.Products {
			product := &models.Product{
				CategoryID:  category.ID,
				Name:        mp.Name,
				Description: mp.Description,
				Price:       mp.Price,
				Available:   mp.IsAvailable(),
			}
			if err := s.AddProduct(ctx, product); err != nil {
				return created, fmt.Errorf("seed product %q: %w", mp.Name, err)
			}
			created++
		}
	}
	log.Printf("🌱 Seeded %d categories, %d products", len(menu), created)
	return created, nil
}
