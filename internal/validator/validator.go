// Package validator checks the structural integrity of decoded events before
// any handler touches storage.
package validator

import (
	"FillIndexer/internal/event"
	"fmt"

	"github.com/rs/zerolog"
)

// Validator enforces the invariants one event family's handlers rely on.
// A failure is returned as *event.ParseError and is fatal for the event.
type Validator interface {
	Name() string
	Validate(ev *event.ResolvedEvent) error
}

type base struct {
	name   string
	logger zerolog.Logger
}

func (b base) Name() string {
	return b.name
}

// fail logs the failure with the full payload and returns the parse error.
func (b base) fail(ev *event.ResolvedEvent, message string) error {
	b.logger.Error().
		Str("validator", b.name).
		Str("error", message).
		Uint32("block_height", ev.BlockHeight).
		Int32("transaction_index", ev.TransactionIndex).
		Uint32("event_index", ev.Event.EventIndex).
		Interface("event", ev.Decoded.Payload).
		Msg("event failed validation")
	return event.NewParseError(message)
}

func (b base) wrongPayload(ev *event.ResolvedEvent) error {
	return b.fail(ev, fmt.Sprintf("%s cannot validate payload of type %T", b.name, ev.Decoded.Payload))
}

// For returns the validator for a decoded family.
func For(family event.Family, logger zerolog.Logger) (Validator, error) {
	switch family {
	case event.FamilyOrderFill:
		return NewOrderFillValidator(logger), nil
	case event.FamilyDeleveraging:
		return NewDeleveragingValidator(logger), nil
	case event.FamilySubaccountUpdate:
		return NewSubaccountUpdateValidator(logger), nil
	case event.FamilyLiquidityTier:
		return NewLiquidityTierValidator(logger), nil
	case event.FamilyTransfer:
		return NewTransferValidator(logger), nil
	default:
		return nil, fmt.Errorf("no validator for family %s", family)
	}
}
