// Package mail sends transactional email. Services depend on the Mailer
// interface so tests can swap in a recorder.
package mail

import "context"

type Mailer interface {
	// Send delivers a single HTML message. Implementations honor ctx
	// cancellation and deadlines.
	Send(ctx context.Context, to, subject, htmlBody string) error
}
