// Package interceptors holds the unary interceptors of the escrow gRPC API.
package interceptors

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/taliva/escrow/internal/platform/errors"
	"github.com/taliva/escrow/internal/platform/requestctx"
	grpcmeta "github.com/taliva/escrow/internal/services/escrow/api/grpc/metadata"
)

// Logging logs every unary call with its status code and duration. Server
// side failures log at error, client errors at info.
func Logging(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	logger = logger.With().Str("component", "grpc").Logger()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		evt := logger.Info()
		switch code {
		case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
			evt = logger.Error().Err(err)
		case codes.OK:
			evt = logger.Debug()
		}
		evt.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Str("request_id", requestctx.RequestIDFromContext(ctx)).
			Msg("rpc")
		return resp, err
	}
}

// Errors converts domain errors into gRPC statuses localized for the
// caller's accept-language header.
func Errors() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		return nil, apperrors.HandleError(err, grpcmeta.LocaleFromContext(ctx))
	}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return validate
}

// Validation runs struct tag validation on every request before the handler.
func Validation(validate *validator.Validate) grpc.UnaryServerInterceptor {
	if validate == nil {
		validate = NewValidator()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		err := validate.StructCtx(ctx, req)
		var invalid *validator.InvalidValidationError
		switch {
		case err == nil, errors.As(err, &invalid):
			// Requests that are not structs carry no tags.
		default:
			return nil, validationError(err)
		}
		return handler(ctx, req)
	}
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	first := fieldErrs[0]
	field := first.Field()
	if _, rest, ok := strings.Cut(first.Namespace(), "."); ok {
		field = rest
	}
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
		field+" failed "+first.Tag()+" validation",
		map[string]string{"Field": field})
}
