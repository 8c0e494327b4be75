package command

import (
	"errors"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/services/escrow/domain/event"
)

// Decision represents the pure outcome of handling a command.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code     apperrors.Code
	Message  string
	Metadata map[string]string
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}

// Rejected reports whether the decision declined the command.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}

// Err converts the first rejection into a domain error, or nil when accepted.
func (d Decision) Err() error {
	if len(d.Rejections) == 0 {
		return nil
	}
	r := d.Rejections[0]
	return apperrors.WithMetadata(r.Code, r.Message, r.Metadata)
}

// RejectError turns a validation error into a rejection, keeping the code
// and metadata of domain errors. Other errors become invalid arguments.
func RejectError(err error) Decision {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return Reject(Rejection{Code: appErr.Code, Message: appErr.Message, Metadata: appErr.Metadata})
	}
	return Reject(Rejection{Code: apperrors.CodeInvalidArgument, Message: err.Error()})
}
