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

const (
	storeConfigCollection = "storeConfig"
	taxConfigDocument     = "tax"
)

// StoreConfigRepository persists singleton store configuration documents.
type StoreConfigRepository struct {
	base *pfirestore.BaseRepository[taxConfigDoc]
}

// NewStoreConfigRepository constructs a Firestore-backed config repository.
func NewStoreConfigRepository(provider *pfirestore.Provider) (*StoreConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("store config repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[taxConfigDoc](provider, storeConfigCollection, nil, nil)
	return &StoreConfigRepository{base: base}, nil
}

// GetTax loads the store-wide tax rate.
func (r *StoreConfigRepository) GetTax(ctx context.Context) (domain.TaxConfig, error) {
	if r == nil || r.base == nil {
		return domain.TaxConfig{}, errors.New("store config repository not initialised")
	}
	doc, err := r.base.Get(ctx, taxConfigDocument)
	if err != nil {
		return domain.TaxConfig{}, err
	}
	return domain.TaxConfig{
		Percent:   strings.TrimSpace(doc.Data.Percent),
		UpdatedAt: doc.Data.UpdatedAt,
	}, nil
}

// SetTax replaces the store-wide tax rate. Existing orders keep the rate
// snapshotted at their creation.
func (r *StoreConfigRepository) SetTax(ctx context.Context, cfg domain.TaxConfig) (domain.TaxConfig, error) {
	if r == nil || r.base == nil {
		return domain.TaxConfig{}, errors.New("store config repository not initialised")
	}
	percent := strings.TrimSpace(cfg.Percent)
	if percent == "" {
		return domain.TaxConfig{}, errors.New("store config: tax percent is required")
	}
	now := cfg.UpdatedAt.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	doc := taxConfigDoc{Percent: percent, UpdatedAt: now}
	if _, err := r.base.Set(ctx, taxConfigDocument, doc); err != nil {
		return domain.TaxConfig{}, err
	}
	return domain.TaxConfig{Percent: percent, UpdatedAt: now}, nil
}

type taxConfigDoc struct {
	Percent   string    `firestore:"percent"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

var _ repositories.StoreConfigRepository = (*StoreConfigRepository)(nil)
