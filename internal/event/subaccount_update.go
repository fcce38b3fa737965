package event

import "math/big"

// SubaccountUpdateEventV1 carries the post-block perpetual and asset positions
// that changed for one subaccount. Quantums are signed: negative is short.
type SubaccountUpdateEventV1 struct {
	SubaccountID              *SubaccountID
	UpdatedPerpetualPositions []PerpetualPositionUpdate
	UpdatedAssetPositions     []AssetPositionUpdate
}

type PerpetualPositionUpdate struct {
	PerpetualID  uint32
	Quantums     *big.Int
	FundingIndex *big.Int
}

type AssetPositionUpdate struct {
	AssetID  uint32
	Quantums *big.Int
}
