package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was refused. Kinds are part of the
// deterministic wire contract: a failed operation's TxOutcome.Code is
// the numeric value of its Kind, identical on every replica.
type Kind uint32

const (
	// KindOK is the zero value and never appears in an Error.
	KindOK Kind = 0

	// KindBadRequest: the payload could not be decoded or is
	// structurally malformed.
	KindBadRequest Kind = 1
	// KindUnauthorized: the caller is not in the required authorized set.
	KindUnauthorized Kind = 2
	// KindInvalidState: the operation is not valid for the entity's
	// current lifecycle state.
	KindInvalidState Kind = 3
	// KindDuplicateVote: the founder already voted on this proposal.
	KindDuplicateVote Kind = 4
	// KindAlreadyReleased: the milestone was already released.
	KindAlreadyReleased Kind = 5
	// KindExpired: the entity's deadline has passed.
	KindExpired Kind = 6
	// KindOutOfRange: an index or value is outside its valid bounds.
	KindOutOfRange Kind = 7
	// KindInvalidAllocation: a percentage or threshold arithmetic
	// invariant was violated.
	KindInvalidAllocation Kind = 8
	// KindTooManyParties: the founder set exceeds its cap.
	KindTooManyParties Kind = 9
	// KindTooManyParts: the milestone sequence exceeds its cap.
	KindTooManyParts Kind = 10
	// KindTransferFailed: the asset-transfer primitive declined.
	KindTransferFailed Kind = 11
	// KindNotFound: no entity with the given identifier exists.
	KindNotFound Kind = 12
	// KindAlreadyExists: an entity with the given identifier exists.
	KindAlreadyExists Kind = 13
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "OK"
	case KindBadRequest:
		return "BadRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidState:
		return "InvalidState"
	case KindDuplicateVote:
		return "DuplicateVote"
	case KindAlreadyReleased:
		return "AlreadyReleased"
	case KindExpired:
		return "Expired"
	case KindOutOfRange:
		return "OutOfRange"
	case KindInvalidAllocation:
		return "InvalidAllocation"
	case KindTooManyParties:
		return "TooManyParties"
	case KindTooManyParts:
		return "TooManyParts"
	case KindTransferFailed:
		return "TransferFailed"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Error is a refused operation. The whole operation, including any
// partial entity mutation, is discarded when one is returned.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// errf builds an *Error with a formatted message.
func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from an error, or KindOK if the error is
// nil or not a protocol Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOK
}
