package state

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetPosition is a subaccount's balance of one asset. Size is absolute.
type AssetPosition struct {
	ID           uuid.UUID
	SubaccountID uuid.UUID
	AssetID      uint32
	Size         decimal.Decimal
	IsLong       bool
}

// LiquidityTier holds margin parameters shared by perpetual markets. The
// open interest caps only exist from the second event version on.
type LiquidityTier struct {
	ID                     uint32
	Name                   string
	InitialMarginPpm       uint32
	MaintenanceFractionPpm uint32
	BasePositionNotional   decimal.Decimal
	OpenInterestLowerCap   *decimal.Decimal
	OpenInterestUpperCap   *decimal.Decimal
}
