package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
	pfirestore "github.com/brp-commerce/api/internal/platform/firestore"
	"github.com/brp-commerce/api/internal/repositories"
)

// CartRepository persists the per-user cart document, keyed by user ID.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection, nil, nil)
	return &CartRepository{
		base:     base,
		provider: provider,
	}, nil
}

// GetCart loads the cart for the given user ID. A missing document is
// returned as an empty cart rather than an error.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return domain.Cart{ID: uid, UserID: uid, Items: []domain.CartItem{}}, nil
		}
		return domain.Cart{}, err
	}

	return doc.Data.toDomain(doc.ID), nil
}

// ReplaceItems overwrites the cart's item list.
func (r *CartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := time.Now().UTC()
	doc := cartDocument{
		Items:     make([]cartItemDocument, 0, len(items)),
		UpdatedAt: now,
	}
	for _, item := range items {
		doc.Items = append(doc.Items, cartItemDocument{
			ID:          strings.TrimSpace(item.ID),
			VariantID:   strings.TrimSpace(item.VariantID),
			Name:        strings.TrimSpace(item.Name),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			WeightGrams: item.WeightGrams,
			AddedAt:     item.AddedAt.UTC(),
		})
	}

	if _, err := r.base.Set(ctx, uid, doc); err != nil {
		return domain.Cart{}, err
	}
	return doc.toDomain(uid), nil
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID          string    `firestore:"id"`
	VariantID   string    `firestore:"variantId"`
	Name        string    `firestore:"name"`
	Quantity    int       `firestore:"qty"`
	UnitPrice   int64     `firestore:"unitPrice"`
	WeightGrams int       `firestore:"weightGrams"`
	AddedAt     time.Time `firestore:"addedAt"`
}

func (d cartDocument) toDomain(id string) domain.Cart {
	cart := domain.Cart{
		ID:        id,
		UserID:    id,
		Items:     make([]domain.CartItem, 0, len(d.Items)),
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.Items {
		cart.Items = append(cart.Items, domain.CartItem{
			ID:          item.ID,
			VariantID:   item.VariantID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			WeightGrams: item.WeightGrams,
			AddedAt:     item.AddedAt,
		})
	}
	return cart
}

var _ repositories.CartRepository = (*CartRepository)(nil)
