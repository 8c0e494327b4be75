// Package metadata defines the request headers of the escrow gRPC API and
// moves them into the request context.
//
// Every call leaves the interceptor with a request id, generated when the
// client sent none, and the id is echoed back in the response headers.
package metadata

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/taliva/escrow/internal/platform/id"
	"github.com/taliva/escrow/internal/platform/requestctx"
)

// RequestIDHeader correlates logs and ledger events with one API call.
const RequestIDHeader = "x-escrow-request-id"

// CallerTypeHeader names the kind of caller, e.g. "investor" or "committee".
const CallerTypeHeader = "x-escrow-caller-type"

// CallerIDHeader identifies the caller within its type.
const CallerIDHeader = "x-escrow-caller-id"

// LocaleHeader selects the language of error and activity messages.
const LocaleHeader = "accept-language"

// IsPrintableASCII reports whether value is non-empty printable ASCII.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable value stored under key.
func FirstMetadataValue(md metadata.MD, key string) string {
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

// IncomingValue reads one header from the incoming call metadata.
func IncomingValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, key)
}

// LocaleFromContext returns the caller's preferred locale, if any.
func LocaleFromContext(ctx context.Context) string {
	return IncomingValue(ctx, LocaleHeader)
}

// UnaryServerInterceptor copies request metadata into requestctx.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := IncomingValue(ctx, RequestIDHeader)
		if requestID == "" {
			generated, err := idGenerator()
			if err != nil {
				return nil, status.Errorf(codes.Internal, "generate request id: %v", err)
			}
			requestID = generated
		}
		ctx = requestctx.WithRequestID(ctx, requestID)
		if callerID := IncomingValue(ctx, CallerIDHeader); callerID != "" {
			ctx = requestctx.WithCaller(ctx, requestctx.Caller{
				Type: strings.ToLower(IncomingValue(ctx, CallerTypeHeader)),
				ID:   callerID,
			})
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(ctx, req)
	}
}
