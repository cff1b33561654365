package models

// Card is one row of the cards table. ID is the catalog's own card id and
// stays stable across imports.
type Card struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       *string  `json:"type"` // catalog type_line
	OracleText *string  `json:"oracle_text"`
	ManaCost   *string  `json:"mana_cost"`
	Power      *string  `json:"power"`
	Toughness  *string  `json:"toughness"`
	Colors     []string `json:"colors"` // short colour codes, e.g. "W", "U"
	Rarity     *string  `json:"rarity"`
}

// CardFilter narrows a card search. Zero values mean "no filter".
type CardFilter struct {
	Name      string
	Color     string
	Type      string
	Limit     int
	Offset    int
	Order     string
	Direction string
}
