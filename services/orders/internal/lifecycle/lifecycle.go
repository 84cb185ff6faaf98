// Package lifecycle is the authority on legal order and item states.
// It never fires transitions itself; callers validate requested moves here
// before persisting them.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/appetiteclub/orderboard/pkg/enums"
	"github.com/appetiteclub/orderboard/pkg/enums/itemstatus"
	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrCorrectionRequired = errors.New("exhausted order requires administrative correction")
)

// InvalidStateError is returned when a state value outside the enumerations
// enters the system.
type InvalidStateError = enums.InvalidStateError

// TransitionError describes a rejected move. It unwraps to ErrInvalidTransition.
type TransitionError struct {
	Kind string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Kind, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Item is anything carrying an item state. A bare itemstatus.Status is one.
type Item interface {
	ItemStatus() itemstatus.Status
}

var orderRank = map[orderstatus.Status]int{
	orderstatus.Statuses.Ordered:   0,
	orderstatus.Statuses.Preparing: 1,
	orderstatus.Statuses.Ready:     2,
	orderstatus.Statuses.Delivered: 3,
}

var itemRank = map[itemstatus.Status]int{
	itemstatus.Statuses.Submitted: 0,
	itemstatus.Statuses.Working:   1,
	itemstatus.Statuses.Ready:     2,
	itemstatus.Statuses.Delivered: 3,
}

func IsTerminal(s orderstatus.Status) bool {
	return s == orderstatus.Statuses.Delivered
}

func IsExhausted(s orderstatus.Status) bool {
	return s == orderstatus.Statuses.Exhausted
}

// ItemsAllReady reports whether every item is PRONTO.
// An empty list is vacuously ready; callers must reject empty orders themselves.
func ItemsAllReady[T Item](items []T) bool {
	for _, it := range items {
		if it.ItemStatus() != itemstatus.Statuses.Ready {
			return false
		}
	}
	return true
}

// ValidateOrderTransition checks a requested order move. Moves are forward
// only along ORDINATO, IN_PREPARAZIONE, PRONTO, CONSEGNATO and may skip steps.
// ORDINATO_ESAURITO is entered only from ORDINATO and left only through
// ValidateCorrection. Requesting the current state is a no-op.
func ValidateOrderTransition(from, to orderstatus.Status) error {
	if err := knownOrderStates(from, to); err != nil {
		return err
	}

	if from == to {
		return nil
	}

	if IsExhausted(from) {
		return ErrCorrectionRequired
	}

	if IsExhausted(to) {
		if from != orderstatus.Statuses.Ordered {
			return orderTransitionError(from, to)
		}
		return nil
	}

	if orderRank[to] < orderRank[from] {
		return orderTransitionError(from, to)
	}

	return nil
}

// ValidateCorrection checks the administrative exit from ORDINATO_ESAURITO.
// The order goes back to ORDINATO so it re-enters the pipeline.
func ValidateCorrection(from, to orderstatus.Status) error {
	if err := knownOrderStates(from, to); err != nil {
		return err
	}

	if !IsExhausted(from) || to != orderstatus.Statuses.Ordered {
		return &TransitionError{Kind: "order correction", From: from.Code(), To: to.Code()}
	}

	return nil
}

// ValidateItemTransition checks a requested item move, forward only.
func ValidateItemTransition(from, to itemstatus.Status) error {
	for _, s := range []itemstatus.Status{from, to} {
		if _, ok := itemRank[s]; !ok {
			return &InvalidStateError{Kind: "item", Value: s.Code()}
		}
	}

	if itemRank[to] < itemRank[from] {
		return &TransitionError{Kind: "item", From: from.Code(), To: to.Code()}
	}

	return nil
}

func knownOrderStates(states ...orderstatus.Status) error {
	for _, s := range states {
		if orderstatus.ByName(s.Code()) == nil {
			return &InvalidStateError{Kind: "order", Value: s.Code()}
		}
	}
	return nil
}

func orderTransitionError(from, to orderstatus.Status) error {
	return &TransitionError{Kind: "order", From: from.Code(), To: to.Code()}
}
