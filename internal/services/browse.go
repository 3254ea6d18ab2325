package services

import (
	"context"
	"fmt"

	"github.com/Ananth-NQI/orderbot-backend/internal/models"
)

// greet resets the conversation and shows the main menu
func (e *Engine) greet(_ context.Context, t *turn) (string, error) {
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepMainMenu
		s.Data = SessionData{}
	})
	return welcomeMessage(e.restaurant), nil
}

// handleInitial serves new and expired sessions. A main menu shortcut is
// honored directly; anything else gets the welcome.
func (e *Engine) handleInitial(ctx context.Context, t *turn) (string, error) {
	if in, ok := matchIntent(e.mainMenu, t.input); ok {
		return in.handle(ctx, t)
	}
	return e.greet(ctx, t)
}

func (e *Engine) handleMainMenu(ctx context.Context, t *turn) (string, error) {
	if in, ok := matchIntent(e.mainMenu, t.input); ok {
		return in.handle(ctx, t)
	}
	return mainMenuFallbackMessage(), nil
}

func (e *Engine) showContact(_ context.Context, t *turn) (string, error) {
	e.sessions.Update(t.phone, func(s *Session) { s.Step = StepMainMenu })
	return contactMessage(e.restaurant), nil
}

func (e *Engine) showHelp(_ context.Context, t *turn) (string, error) {
	e.sessions.Update(t.phone, func(s *Session) { s.Step = StepMainMenu })
	return helpMessage(), nil
}

func (e *Engine) showCategories(ctx context.Context, t *turn) (string, error) {
	cats, err := e.store.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		e.sessions.Update(t.phone, func(s *Session) { s.Step = StepMainMenu })
		return menuUnavailableMessage(), nil
	}

	refs := categoryRefs(cats)
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepBrowsingCategories
		s.Data.Categories = refs
	})
	return categoriesMessage(refs), nil
}

func (e *Engine) handleBrowsingCategories(ctx context.Context, t *turn) (string, error) {
	cats := t.session.Data.Categories
	if len(cats) == 0 {
		return e.showCategories(ctx, t)
	}

	if wantsAll(t.input) {
		products, err := e.store.ListProducts(ctx, nil)
		if err != nil {
			return "", fmt.Errorf("list products: %w", err)
		}
		refs := productRefs(products)
		e.sessions.Update(t.phone, func(s *Session) {
			s.Step = StepBrowsingProducts
			s.Data.Products = refs
		})
		return allProductsMessage(cats, refs), nil
	}

	idx, ok := parseIndex(t.input, len(cats))
	if !ok {
		return invalidCategoryMessage(len(cats)), nil
	}
	cat := cats[idx]
	products, err := e.store.ListProducts(ctx, &cat.ID)
	if err != nil {
		return "", fmt.Errorf("list products of category %d: %w", cat.ID, err)
	}
	refs := productRefs(products)
	e.sessions.Update(t.phone, func(s *Session) {
		s.Step = StepBrowsingProducts
		s.Data.Products = refs
	})
	return productsMessage(cat.Name, refs), nil
}

func (e *Engine) handleBrowsingProducts(ctx context.Context, t *turn) (string, error) {
	if in, ok := matchIntent(e.browseProducts, t.input); ok {
		return in.handle(ctx, t)
	}
	return browsingProductsFallbackMessage(), nil
}

func categoryRefs(cats []*models.Category) []CategoryRef {
	refs := make([]CategoryRef, 0, len(cats))
	for _, c := range cats {
		refs = append(refs, CategoryRef{ID: c.ID, Name: c.Name})
	}
	return refs
}

// productRefs snapshots the available products in list order
func productRefs(products []*models.Product) []ProductRef {
	refs := make([]ProductRef, 0, len(products))
	for _, p := range products {
		if !p.Available {
			continue
		}
		refs = append(refs, ProductRef{ID: p.ID, CategoryID: p.CategoryID, Name: p.Name, Price: p.Price})
	}
	return refs
}
