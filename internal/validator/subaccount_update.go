package validator

import (
	"FillIndexer/internal/event"
	"fmt"

	"github.com/rs/zerolog"
)

type SubaccountUpdateValidator struct {
	base
}

func NewSubaccountUpdateValidator(logger zerolog.Logger) *SubaccountUpdateValidator {
	return &SubaccountUpdateValidator{base{name: "SubaccountUpdateValidator", logger: logger}}
}

func (v *SubaccountUpdateValidator) Validate(ev *event.ResolvedEvent) error {
	u, ok := ev.Decoded.Payload.(*event.SubaccountUpdateEventV1)
	if !ok {
		return v.wrongPayload(ev)
	}

	if u.SubaccountID == nil {
		return v.fail(ev, "SubaccountUpdateEvent must contain a subaccountId")
	}
	for _, p := range u.UpdatedPerpetualPositions {
		if p.Quantums == nil {
			return v.fail(ev, fmt.Sprintf(
				"SubaccountUpdateEvent perpetual position %d must contain quantums", p.PerpetualID))
		}
	}
	for _, a := range u.UpdatedAssetPositions {
		if a.Quantums == nil {
			return v.fail(ev, fmt.Sprintf(
				"SubaccountUpdateEvent asset position %d must contain quantums", a.AssetID))
		}
	}
	return nil
}
