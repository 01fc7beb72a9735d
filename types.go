package mailer

import "context"

type clientAddrKey struct{}

// WithClientAddr attaches the identifier of the client that triggered a
// notification (usually its IP address) to ctx. It ends up in the event log.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, addr)
}

// ClientAddrFromContext returns the client identifier set by WithClientAddr
func ClientAddrFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey{}).(string)
	return addr
}
