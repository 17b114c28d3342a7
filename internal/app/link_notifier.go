package app

import (
	"context"
	"fmt"

	"propsheet-service/internal/auth"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/sms"
)

// LinkNotifier is the magic link send function: it writes the SMS and hands it to a sender.
type LinkNotifier struct {
	sender  sms.Sender
	appName string
}

func NewLinkNotifier(sender sms.Sender, appName string) *LinkNotifier {
	if appName == "" {
		appName = "Prop Sheet"
	}
	return &LinkNotifier{sender: sender, appName: appName}
}

func (n *LinkNotifier) Send(ctx context.Context, params auth.SendParams[domain.User]) error {
	return n.sender.Send(ctx, sms.Message{To: params.Phone, Body: n.body(params)})
}

func (n *LinkNotifier) body(params auth.SendParams[domain.User]) string {
	if params.User != nil && params.User.DisplayName != "" {
		return fmt.Sprintf("Welcome back %s! Tap to sign in to %s: %s", params.User.DisplayName, n.appName, params.MagicLink)
	}
	return fmt.Sprintf("Tap to sign in to %s: %s", n.appName, params.MagicLink)
}
