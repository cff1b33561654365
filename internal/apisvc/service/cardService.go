package service

import (
	"context"

	"github.com/avvvet/manavault/internal/apisvc/models"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

type CardStore interface {
	Search(ctx context.Context, f models.CardFilter) ([]models.Card, error)
}

type CardService struct {
	store CardStore
}

func NewCardService(store CardStore) *CardService {
	return &CardService{store: store}
}

// Search applies pagination defaults before querying the store. The
// returned filter holds the limit and offset actually used.
func (s *CardService) Search(ctx context.Context, f models.CardFilter) ([]models.Card, models.CardFilter, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultSearchLimit
	}
	if f.Limit > MaxSearchLimit {
		f.Limit = MaxSearchLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Order == "" {
		f.Order = "name"
	}

	cards, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, f, err
	}
	return cards, f, nil
}
