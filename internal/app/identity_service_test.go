package app_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"propsheet-service/internal/app"
	"propsheet-service/internal/auth"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/infra/memory"
	"propsheet-service/internal/sms"
)

func TestVerifyMagicLinkPrecheckDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	service := app.NewIdentityService(users)

	_, err := service.VerifyMagicLink(ctx, auth.VerifyParams{Phone: "+14165550100"})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found during pre-check, got %v", err)
	}
	if users.Len() != 0 {
		t.Fatalf("pre-check must not create users")
	}

	user, err := service.VerifyMagicLink(ctx, auth.VerifyParams{
		Phone:           "+14165550100",
		Form:            url.Values{"name": {"  Ada  "}},
		MagicLinkVerify: true,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.DisplayName != "Ada" || user.Phone != "+14165550100" {
		t.Fatalf("unexpected user %+v", user)
	}

	again, err := service.VerifyMagicLink(ctx, auth.VerifyParams{Phone: "+14165550100"})
	if err != nil || again.ID != user.ID {
		t.Fatalf("expected pre-check to find the created user, got %+v %v", again, err)
	}
}

func TestVerifyPhoneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	service := app.NewIdentityService(users)

	first, err := service.VerifyPhone(ctx, auth.VerifyParams{Phone: "+16045550199", Form: url.Values{"name": {strings.Repeat("x", 200)}}})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(first.DisplayName) != 120 {
		t.Fatalf("expected display name truncated to 120, got %d", len(first.DisplayName))
	}
	second, err := service.VerifyPhone(ctx, auth.VerifyParams{Phone: "+16045550199"})
	if err != nil {
		t.Fatalf("verify again: %v", err)
	}
	if first.ID != second.ID || users.Len() != 1 {
		t.Fatalf("expected one user, got %s and %s", first.ID, second.ID)
	}
}

type recordingSender struct {
	msgs []sms.Message
}

func (s *recordingSender) Send(_ context.Context, msg sms.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func TestLinkNotifierBody(t *testing.T) {
	sender := &recordingSender{}
	notifier := app.NewLinkNotifier(sender, "")

	link := "https://props.example.com/magic?token=abc"
	if err := notifier.Send(context.Background(), auth.SendParams[domain.User]{Phone: "+14165550100", MagicLink: link}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := notifier.Send(context.Background(), auth.SendParams[domain.User]{
		Phone:     "+14165550100",
		MagicLink: link,
		User:      &domain.User{DisplayName: "Ada"},
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got := sender.msgs[0].Body; got != "Tap to sign in to Prop Sheet: "+link {
		t.Fatalf("unexpected body %q", got)
	}
	if got := sender.msgs[1].Body; !strings.HasPrefix(got, "Welcome back Ada!") || !strings.HasSuffix(got, link) {
		t.Fatalf("unexpected personalised body %q", got)
	}
	if sender.msgs[1].To != "+14165550100" {
		t.Fatalf("unexpected recipient %q", sender.msgs[1].To)
	}
}
