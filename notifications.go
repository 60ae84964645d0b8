package identity

import "context"

// NoopNotifier discards every notification. It is the default so that hosts
// without an email collaborator still get correct account state transitions.
type NoopNotifier struct{}

var _ Notifier = NoopNotifier{}

func (NoopNotifier) SendVerificationCode(ctx context.Context, email, name, code string) error {
	return nil
}

func (NoopNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return nil
}

func (NoopNotifier) SendSuspensionNotice(ctx context.Context, email, name, reason string) error {
	return nil
}

func (NoopNotifier) SendReinstatementNotice(ctx context.Context, email, name string) error {
	return nil
}
