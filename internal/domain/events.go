package domain

// Signal bus channels. WebSocket clients subscribe to the same names.
const (
	ChannelBets        = "bets"
	ChannelPrices      = "prices"
	ChannelSettlements = "settlements"
	ChannelStatus      = "status"
)

// BetPlacedEvent is published on ChannelBets after an accepted bet.
type BetPlacedEvent struct {
	Event      string `json:"event"` // "bet_placed"
	BetID      uint64 `json:"bet_id"`
	Owner      string `json:"owner"`
	Amount     uint64 `json:"amount"`
	Prediction string `json:"prediction"`
	EntryPrice uint64 `json:"entry_price"`
	ExpiresAt  uint64 `json:"expires_at"`
}

// PriceUpdatedEvent is published on ChannelPrices after an accepted update.
type PriceUpdatedEvent struct {
	Event     string `json:"event"` // "price_updated"
	Price     uint64 `json:"price"`
	Timestamp uint64 `json:"timestamp"`
}

// BetSettledEvent is published on ChannelSettlements for every terminal
// transition (resolution, cancellation, emergency resolution).
type BetSettledEvent struct {
	Event      string `json:"event"` // "bet_resolved", "bet_cancelled", "bet_emergency_resolved"
	BetID      uint64 `json:"bet_id"`
	Owner      string `json:"owner"`
	State      string `json:"state"`
	FinalPrice uint64 `json:"final_price,omitempty"`
	Payout     uint64 `json:"payout"`
}

// StatusEvent is published on ChannelStatus for pause flips and oracle
// rotation.
type StatusEvent struct {
	Event  string `json:"event"` // "contract_paused", "contract_unpaused", "oracle_changed"
	Reason string `json:"reason,omitempty"`
	Oracle string `json:"oracle,omitempty"`
}
