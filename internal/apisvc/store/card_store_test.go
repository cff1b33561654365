package store

import (
	"context"
	"errors"
	"testing"

	"github.com/avvvet/manavault/internal/apisvc/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildCardSearch(t *testing.T) {
	tests := []struct {
		name     string
		filter   models.CardFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "no filters",
			filter:   models.CardFilter{},
			wantSQL:  "SELECT id, name, type, oracle_text, mana_cost, power, toughness, colors, rarity FROM cards ORDER BY name ASC",
			wantArgs: nil,
		},
		{
			name:     "all filters",
			filter:   models.CardFilter{Name: "bolt", Color: "R", Type: "instant", Limit: 10, Offset: 20, Order: "rarity", Direction: "desc"},
			wantSQL:  "SELECT id, name, type, oracle_text, mana_cost, power, toughness, colors, rarity FROM cards WHERE name ILIKE $1 AND colors @> $2::jsonb AND type ILIKE $3 ORDER BY rarity DESC LIMIT 10 OFFSET 20",
			wantArgs: []any{"%bolt%", `["R"]`, "%instant%"},
		},
		{
			name:     "unknown order column falls back to name",
			filter:   models.CardFilter{Order: "name; DROP TABLE cards", Direction: "sideways", Limit: 5},
			wantSQL:  "SELECT id, name, type, oracle_text, mana_cost, power, toughness, colors, rarity FROM cards ORDER BY name ASC LIMIT 5",
			wantArgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildCardSearch(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCardValuesNilColorsIsNull(t *testing.T) {
	vals := CardValues(models.Card{ID: "a", Name: "Island"})
	require.Len(t, vals, len(CardColumns))
	assert.Nil(t, vals[7])

	vals = CardValues(models.Card{ID: "b", Name: "Forest", Colors: []string{"G"}})
	assert.Equal(t, []string{"G"}, vals[7])
}

func TestCardStoreSearch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(CardColumns).
		AddRow("c1", "Llanowar Elves", strPtr("Creature — Elf Druid"), strPtr("{T}: Add {G}."), strPtr("{G}"), strPtr("1"), strPtr("1"), []string{"G"}, strPtr("common"))

	mock.ExpectQuery("SELECT (.+) FROM cards WHERE name ILIKE").
		WithArgs("%elves%").
		WillReturnRows(rows)

	s := NewCardStore(mock)
	cards, err := s.Search(context.Background(), models.CardFilter{Name: "elves", Limit: 10})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "c1", cards[0].ID)
	assert.Equal(t, []string{"G"}, cards[0].Colors)
	assert.Equal(t, "common", *cards[0].Rarity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCardStoreSearchEmptyResultIsNotNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM cards").WillReturnRows(pgxmock.NewRows(CardColumns))

	cards, err := NewCardStore(mock).Search(context.Background(), models.CardFilter{})
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestCardStoreSearchQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM cards").WillReturnError(errors.New("connection reset"))

	_, err = NewCardStore(mock).Search(context.Background(), models.CardFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCardStoreCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2500)))

	n, err := NewCardStore(mock).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), n)
}
