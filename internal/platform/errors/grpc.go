package errors

import (
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/taliva/escrow/internal/platform/errors/i18n"
)

// Domain identifies escrow errors in google.rpc.ErrorInfo details.
const Domain = "github.com/taliva/escrow"

const DefaultLocale = i18n.DefaultLocale

// HandleError turns err into the status returned to gRPC clients.
//
// Domain errors keep their code as ErrorInfo.Reason and carry a
// LocalizedMessage rendered for locale. Errors that already are statuses
// pass through. Anything else is reported as Internal without its text.
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.status(locale).Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, "an unexpected error occurred")
}

// Localize renders the user-facing message for err in locale. Errors
// without a code get the generic unknown message.
func Localize(err error, locale string) (Code, string) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return CodeUnknown, "an unexpected error occurred"
	}
	return appErr.Code, i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata)
}

func (e *Error) status(locale string) *status.Status {
	catalog := i18n.GetCatalog(locale)
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(string(e.Code))
	}
	// The cause stays server side.
	st := status.New(e.Code.GRPCCode(), msg)
	detailed, err := st.WithDetails(
		&errdetails.ErrorInfo{Reason: string(e.Code), Domain: Domain, Metadata: e.Metadata},
		&errdetails.LocalizedMessage{
			Locale:  catalog.Locale(),
			Message: catalog.Format(string(e.Code), e.Metadata),
		},
	)
	if err != nil {
		return st
	}
	return detailed
}

// GetCode returns the code carried by err, or CodeUnknown.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}

// GetMetadata returns the template values carried by err, if any.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata
	}
	return nil
}
