package event

// SourceOfFunds is one side of a transfer. It is a subaccount for transfers,
// and a wallet address on the outside side of a deposit or withdrawal.
type SourceOfFunds struct {
	SubaccountID *SubaccountID
	Address      string
}

// IsSet reports whether either member of the oneof is present.
func (s *SourceOfFunds) IsSet() bool {
	return s != nil && (s.SubaccountID != nil || s.Address != "")
}

// TransferEventV1 moves Amount quantums of an asset. The deprecated
// sender/recipient subaccount fields (1, 2) are not decoded.
type TransferEventV1 struct {
	AssetID   uint32
	Amount    uint64
	Sender    *SourceOfFunds
	Recipient *SourceOfFunds
}
