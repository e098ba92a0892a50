package services

import (
	"context"
	"errors"
	"testing"

	"crm_dashboard_go/config"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmailSender mocks the Resend emails client
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(params)
	if resp := args.Get(0); resp != nil {
		return resp.(*resend.SendEmailResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func testNotification() InteractionNotification {
	return InteractionNotification{
		ClientName:      "Acme Corp",
		ClientEmail:     "hello@acme.com",
		InteractionType: "Meeting",
		InteractionNote: "Discussed <b>renewal</b><script>alert(1)</script>",
		UserName:        "Grace",
	}
}

func TestBuildInteractionEmail(t *testing.T) {
	n := NewResendNotifier(&config.Config{EmailTestMode: true})

	email, err := n.BuildInteractionEmail(testNotification())
	require.NoError(t, err)

	assert.Equal(t, []string{"hello@acme.com"}, email.To)
	assert.Equal(t, "New Meeting logged in your CRM", email.Subject)
	assert.Contains(t, email.HTMLBody, "New Interaction Logged")
	assert.Contains(t, email.HTMLBody, "Acme Corp")
	assert.Contains(t, email.HTMLBody, "Logged by: Grace")
	assert.Contains(t, email.HTMLBody, "<b>renewal</b>")
	assert.NotContains(t, email.HTMLBody, "<script>")
	assert.Contains(t, email.TextBody, "Type: Meeting")

	p := testNotification()
	p.UserName = ""
	email, err = n.BuildInteractionEmail(p)
	require.NoError(t, err)
	assert.Contains(t, email.HTMLBody, "Logged by: "+UnknownUserName)
}

func TestResendNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{EmailFrom: "crm@example.com", EmailFromName: "CRM"}

	t.Run("sends to the client", func(t *testing.T) {
		sender := new(MockEmailSender)
		sender.On("Send", mock.MatchedBy(func(req *resend.SendEmailRequest) bool {
			return req.From == "CRM <crm@example.com>" &&
				len(req.To) == 1 && req.To[0] == "hello@acme.com" &&
				req.Subject == "New Meeting logged in your CRM"
		})).Return(&resend.SendEmailResponse{Id: "email_123"}, nil).Once()

		n := NewResendNotifier(cfg).WithSender(sender)
		require.NoError(t, n.Notify(ctx, testNotification()))
		sender.AssertExpectations(t)
	})

	t.Run("wraps send failures", func(t *testing.T) {
		sender := new(MockEmailSender)
		sender.On("Send", mock.Anything).Return(nil, errors.New("rate limited")).Once()

		n := NewResendNotifier(cfg).WithSender(sender)
		err := n.Notify(ctx, testNotification())
		var nerr *NotificationError
		require.ErrorAs(t, err, &nerr)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("test mode logs instead of sending", func(t *testing.T) {
		sender := new(MockEmailSender)
		n := NewResendNotifier(&config.Config{EmailTestMode: true}).WithSender(sender)
		require.NoError(t, n.Notify(ctx, testNotification()))
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("missing api key", func(t *testing.T) {
		n := NewResendNotifier(cfg)
		err := n.Notify(ctx, testNotification())
		var nerr *NotificationError
		assert.ErrorAs(t, err, &nerr)
	})

	t.Run("client without email", func(t *testing.T) {
		sender := new(MockEmailSender)
		n := NewResendNotifier(cfg).WithSender(sender)
		p := testNotification()
		p.ClientEmail = ""
		assert.Error(t, n.Notify(ctx, p))
		sender.AssertNotCalled(t, "Send", mock.Anything)
	})
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(ctx context.Context, n InteractionNotification) error {
	panic("boom")
}

func TestDispatcher(t *testing.T) {
	t.Run("recovers from panics", func(t *testing.T) {
		d := NewDispatcher(panickingNotifier{})
		assert.NotPanics(t, func() {
			d.Dispatch(testNotification())
			d.Wait()
		})
	})

	t.Run("nil dispatcher is a no-op", func(t *testing.T) {
		var d *Dispatcher
		assert.NotPanics(t, func() {
			d.Dispatch(testNotification())
			d.Wait()
		})
	})

	t.Run("delivers with a deadline", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Notify", mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}), testNotification()).Return(nil).Once()

		d := NewDispatcher(notifier)
		d.Dispatch(testNotification())
		d.Wait()
		notifier.AssertExpectations(t)
	})
}
