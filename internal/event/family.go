package event

// Subtype tags carried on the block event envelope.
const (
	SubtypeOrderFill        = "order_fill"
	SubtypeDeleveraging     = "deleveraging"
	SubtypeSubaccountUpdate = "subaccount_update"
	SubtypeLiquidityTier    = "liquidity_tier"
	SubtypeTransfer         = "transfer"
)

// Family discriminates decoded payloads.
type Family int32

const (
	FamilyUnrecognized Family = iota
	FamilyOrderFill
	FamilyDeleveraging
	FamilySubaccountUpdate
	FamilyLiquidityTier
	FamilyTransfer
)

func (f Family) String() string {
	switch f {
	case FamilyOrderFill:
		return "order_fill"
	case FamilyDeleveraging:
		return "deleveraging"
	case FamilySubaccountUpdate:
		return "subaccount_update"
	case FamilyLiquidityTier:
		return "liquidity_tier"
	case FamilyTransfer:
		return "transfer"
	default:
		return "unrecognized"
	}
}

// Decoded is the tagged result of dispatching a payload. Family is
// FamilyUnrecognized when decoding failed, in which case Err says why and
// Payload is nil.
type Decoded struct {
	Family  Family
	Version uint32
	Payload any
	Err     error
}

// Recognized reports whether the payload decoded into a known family.
func (d Decoded) Recognized() bool {
	return d.Family != FamilyUnrecognized && d.Err == nil
}
