package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/manavault/internal/apisvc/models"
)

const CardsTable = "cards"

// CardColumns is the column order used by every card read and write.
var CardColumns = []string{
	"id", "name", "type", "oracle_text", "mana_cost", "power", "toughness", "colors", "rarity",
}

var sortableCardColumns = map[string]bool{
	"id": true, "name": true, "type": true, "mana_cost": true,
	"power": true, "toughness": true, "rarity": true,
}

// CardValues returns c's values in CardColumns order. A nil colour list is
// sent as SQL NULL rather than a JSON null.
func CardValues(c models.Card) []any {
	var colors any
	if c.Colors != nil {
		colors = c.Colors
	}
	return []any{c.ID, c.Name, c.Type, c.OracleText, c.ManaCost, c.Power, c.Toughness, colors, c.Rarity}
}

type CardStore struct {
	db DB
}

func NewCardStore(db DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) Search(ctx context.Context, f models.CardFilter) ([]models.Card, error) {
	query, args, err := buildCardSearch(f)
	if err != nil {
		return nil, fmt.Errorf("failed to build card search: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		var c models.Card
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Type,
			&c.OracleText,
			&c.ManaCost,
			&c.Power,
			&c.Toughness,
			&c.Colors,
			&c.Rarity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cards, nil
}

func (s *CardStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+CardsTable).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func buildCardSearch(f models.CardFilter) (string, []any, error) {
	q := psql.Select(CardColumns...).From(CardsTable)

	if f.Name != "" {
		q = q.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Color != "" {
		contains, err := json.Marshal([]string{f.Color})
		if err != nil {
			return "", nil, err
		}
		q = q.Where("colors @> ?::jsonb", string(contains))
	}
	if f.Type != "" {
		q = q.Where("type ILIKE ?", "%"+f.Type+"%")
	}

	// order is user input, so only known columns reach the SQL text
	order := strings.ToLower(f.Order)
	if !sortableCardColumns[order] {
		order = "name"
	}
	direction := "ASC"
	if strings.EqualFold(f.Direction, "desc") {
		direction = "DESC"
	}
	q = q.OrderBy(order + " " + direction)

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	return q.ToSql()
}
