package adapter

import "context"

// Mailer delivers human-readable confirmations. Dispatch is best effort:
// a failed send is logged and never rolls back a committed activation.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
