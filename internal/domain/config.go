package domain

// ConfigKey names an entry in the admin-settable config table. The table
// accepts arbitrary keys (admin-extensible); the constants below are the
// keys the engine recognizes as parameter overrides.
type ConfigKey string

const (
	KeyMinBetAmount       ConfigKey = "min-bet-amount"       // micro-units
	KeyMaxBetAmount       ConfigKey = "max-bet-amount"       // micro-units
	KeyMinDuration        ConfigKey = "min-duration"         // seconds
	KeyMaxDuration        ConfigKey = "max-duration"         // seconds
	KeyPayoutMultiplier   ConfigKey = "payout-multiplier-bps" // fixed odds, basis points of the stake
	KeyFeeBps             ConfigKey = "fee-bps"              // house fee, basis points of the gross payout
	KeyPriceStalenessSecs ConfigKey = "price-staleness-secs" // max accepted oracle timestamp age
	KeyClockSkewSecs      ConfigKey = "clock-skew-secs"      // max accepted oracle timestamp lead
	KeyMaxDailyBets       ConfigKey = "max-daily-bets"       // per-day acceptance cap; 0 or absent disables
)
