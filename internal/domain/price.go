package domain

import "github.com/ethereum/go-ethereum/common"

// PricePoint is the latest oracle-attested reference price. Exactly one is
// retained; an accepted update replaces it atomically.
type PricePoint struct {
	Price      uint64
	Timestamp  uint64 // seconds, oracle-supplied
	ReportedBy common.Address
}
