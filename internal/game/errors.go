package game

import "errors"

// Business rule violations. Each maps to a wire error kind so the gateway
// can return a machine-readable rejection to the originating connection.
var (
	ErrInvalidTier         = errors.New("tier must be between 1 and 4")
	ErrInvalidQuantity     = errors.New("quantity must be at least 1")
	ErrMaxTicketsExceeded  = errors.New("ticket limit reached")
	ErrInsufficientBalance = errors.New("not enough balance")
	ErrNotEnoughTickets    = errors.New("not enough tickets available")
	ErrDuplicateName       = errors.New("display name already taken")
	ErrNotRegistered       = errors.New("player is not registered")
	ErrUnknownPlayer       = errors.New("unknown player")
)

// ErrorKind returns the wire identifier for a rejection, or "InternalError"
// for anything outside the known taxonomy.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTier):
		return "InvalidTier"
	case errors.Is(err, ErrInvalidQuantity):
		return "InvalidQuantity"
	case errors.Is(err, ErrMaxTicketsExceeded):
		return "MaxTicketsExceeded"
	case errors.Is(err, ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ErrNotEnoughTickets):
		return "NotEnoughTickets"
	case errors.Is(err, ErrDuplicateName):
		return "DuplicateName"
	case errors.Is(err, ErrNotRegistered):
		return "NotRegistered"
	case errors.Is(err, ErrUnknownPlayer):
		return "UnknownPlayer"
	default:
		return "InternalError"
	}
}
