package rostertx

import "time"

// Type mirrors waiver.TransactionType, duplicated here so this package has
// no compile-time dependency on the waiver domain beyond what it writes.
type Type string

const (
	TypeAdd   Type = "add"
	TypeDrop  Type = "drop"
	TypeTrade Type = "trade"
)

// Transaction is an append-only record of a roster membership change.
type Transaction struct {
	ID                    string
	LeagueID              string
	RosterID              string
	PlayerID              string
	Type                  Type
	Season                int
	Week                  int
	RelatedTransactionID  *string
	IdempotencyKey        *string
	CreatedAt             time.Time
}
