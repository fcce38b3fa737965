package event

// LiquidityTierUpsertEventV1 creates or replaces a liquidity tier.
type LiquidityTierUpsertEventV1 struct {
	ID                     uint32
	Name                   string
	InitialMarginPpm       uint32
	MaintenanceFractionPpm uint32
	BasePositionNotional   uint64
}

// LiquidityTierUpsertEventV2 drops the base position notional and adds
// open interest caps, in quote quantums.
type LiquidityTierUpsertEventV2 struct {
	ID                     uint32
	Name                   string
	InitialMarginPpm       uint32
	MaintenanceFractionPpm uint32
	OpenInterestLowerCap   uint64
	OpenInterestUpperCap   uint64
}
