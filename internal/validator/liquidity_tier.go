package validator

import (
	"FillIndexer/internal/event"

	"github.com/rs/zerolog"
)

type LiquidityTierValidator struct {
	base
}

func NewLiquidityTierValidator(logger zerolog.Logger) *LiquidityTierValidator {
	return &LiquidityTierValidator{base{name: "LiquidityTierValidator", logger: logger}}
}

func (v *LiquidityTierValidator) Validate(ev *event.ResolvedEvent) error {
	var name string
	switch t := ev.Decoded.Payload.(type) {
	case *event.LiquidityTierUpsertEventV1:
		name = t.Name
	case *event.LiquidityTierUpsertEventV2:
		name = t.Name
	default:
		return v.wrongPayload(ev)
	}

	if name == "" {
		return v.fail(ev, "LiquidityTierUpsertEvent must contain a name")
	}
	return nil
}
