package logger

import "context"

type requestInfoKey struct{}

// RequestInfo identifies the client behind a request for audit records.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// WithRequestInfo stores client details on ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the client details stored on ctx, if any.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info
}
