package validator

import (
	"FillIndexer/internal/event"

	"github.com/rs/zerolog"
)

type DeleveragingValidator struct {
	base
}

func NewDeleveragingValidator(logger zerolog.Logger) *DeleveragingValidator {
	return &DeleveragingValidator{base{name: "DeleveragingValidator", logger: logger}}
}

func (v *DeleveragingValidator) Validate(ev *event.ResolvedEvent) error {
	d, ok := ev.Decoded.Payload.(*event.DeleveragingEventV1)
	if !ok {
		return v.wrongPayload(ev)
	}

	switch {
	case d.Liquidated == nil:
		return v.fail(ev, "DeleveragingEvent must contain a liquidated subaccountId")
	case d.Offsetting == nil:
		return v.fail(ev, "DeleveragingEvent must contain an offsetting subaccountId")
	case d.FillAmount == 0:
		return v.fail(ev, "DeleveragingEvent fillAmount cannot equal 0")
	}
	return nil
}
