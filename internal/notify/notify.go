package notify

import "context"

// StatusNone is the sentinel returned when no credential is present: the
// send is a silent no-op and the status check reports "not linked".
const StatusNone = 0

// Notifier is the contract the dispatch loop consumes. Implementations talk
// to the external push provider; failures are the caller's to swallow.
type Notifier interface {
	// Send delivers message to the account behind credential and returns
	// the provider status code, or StatusNone for an empty credential.
	Send(ctx context.Context, message string, credential *string) (int, error)
	// ExchangeCode trades an authorization code for a durable credential.
	ExchangeCode(ctx context.Context, code string) (string, error)
	// CheckStatus reports whether credential is still valid; StatusNone
	// for an empty credential.
	CheckStatus(ctx context.Context, credential *string) (int, error)
}

// DevicePusher fans a reminder out to registered device tokens. Optional;
// the dispatcher skips it when no provider is injected.
type DevicePusher interface {
	SendPush(ctx context.Context, tokens []string, title, body string) error
}
