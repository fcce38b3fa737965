package validator

import (
	"FillIndexer/internal/event"

	"github.com/rs/zerolog"
)

type TransferValidator struct {
	base
}

func NewTransferValidator(logger zerolog.Logger) *TransferValidator {
	return &TransferValidator{base{name: "TransferValidator", logger: logger}}
}

func (v *TransferValidator) Validate(ev *event.ResolvedEvent) error {
	t, ok := ev.Decoded.Payload.(*event.TransferEventV1)
	if !ok {
		return v.wrongPayload(ev)
	}

	if !t.Sender.IsSet() {
		return v.fail(ev, "TransferEvent must have either a sender subaccount id or sender wallet address")
	}
	if !t.Recipient.IsSet() {
		return v.fail(ev, "TransferEvent must have either a recipient subaccount id or recipient wallet address")
	}
	return nil
}
