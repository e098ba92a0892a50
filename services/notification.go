package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"time"

	"crm_dashboard_go/config"

	"github.com/microcosm-cc/bluemonday"
	"github.com/resend/resend-go/v2"
)

const (
	// UnknownUserName is used when the acting user's profile cannot be resolved
	UnknownUserName = "Unknown User"

	defaultNotifyTimeout = 30 * time.Second
)

// InteractionNotification is the payload sent after an interaction is logged
type InteractionNotification struct {
	ClientName      string `json:"clientName"`
	ClientEmail     string `json:"clientEmail"`
	InteractionType string `json:"interactionType"`
	InteractionNote string `json:"interactionNote"`
	UserName        string `json:"userName"`
}

// Notifier delivers interaction notifications
type Notifier interface {
	Notify(ctx context.Context, n InteractionNotification) error
}

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// EmailSender is the subset of the Resend client used to send mail
type EmailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendNotifier emails each notification to the client through Resend.
// In test mode the email is logged instead of sent.
type ResendNotifier struct {
	cfg    *config.Config
	sender EmailSender
	policy *bluemonday.Policy
}

func NewResendNotifier(cfg *config.Config) *ResendNotifier {
	n := &ResendNotifier{cfg: cfg, policy: bluemonday.UGCPolicy()}
	if cfg.ResendAPIKey != "" {
		n.sender = resend.NewClient(cfg.ResendAPIKey).Emails
	}
	return n
}

// WithSender replaces the Resend client
func (n *ResendNotifier) WithSender(sender EmailSender) *ResendNotifier {
	n.sender = sender
	return n
}

func (n *ResendNotifier) Notify(ctx context.Context, payload InteractionNotification) error {
	if payload.ClientEmail == "" {
		return &NotificationError{Err: fmt.Errorf("client has no email address")}
	}

	email, err := n.BuildInteractionEmail(payload)
	if err != nil {
		return &NotificationError{Err: err}
	}

	if n.cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if n.sender == nil {
		return &NotificationError{Err: fmt.Errorf("RESEND_API_KEY not configured")}
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.cfg.EmailFromName, n.cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	if err := ctx.Err(); err != nil {
		return &NotificationError{Err: err}
	}

	sent, err := n.sender.Send(params)
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("failed to send email via Resend: %w", err)}
	}

	log.Printf("[NOTIFY] Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

var interactionEmailHTML = template.Must(template.New("interaction").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">New Interaction Logged</h2>
  <p><strong>Client:</strong> {{.ClientName}}</p>
  <p><strong>Type:</strong> {{.Type}}</p>
  <p><strong>Details:</strong></p>
  <div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 10px 0;">{{.Note}}</div>
  <p style="color: #666; font-size: 14px; margin-top: 20px;">Logged by: {{.UserName}}</p>
</div>
`))

// BuildInteractionEmail renders the notification email. The note is
// sanitized before being embedded in the HTML body.
func (n *ResendNotifier) BuildInteractionEmail(p InteractionNotification) (*Email, error) {
	userName := p.UserName
	if userName == "" {
		userName = UnknownUserName
	}

	var html bytes.Buffer
	err := interactionEmailHTML.Execute(&html, struct {
		Type       string
		ClientName string
		UserName   string
		Note       template.HTML
	}{
		Type:       p.InteractionType,
		ClientName: p.ClientName,
		UserName:   userName,
		Note:       template.HTML(n.policy.Sanitize(p.InteractionNote)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render notification: %w", err)
	}

	text := fmt.Sprintf("New Interaction Logged\n\nClient: %s\nType: %s\nDetails:\n%s\n\nLogged by: %s\n",
		p.ClientName, p.InteractionType, p.InteractionNote, userName)

	return &Email{
		To:       []string{p.ClientEmail},
		Subject:  fmt.Sprintf("New %s logged in your CRM", p.InteractionType),
		HTMLBody: html.String(),
		TextBody: text,
	}, nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n📧 EMAIL (Development Mode - Not Actually Sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("\n--- HTML BODY (first 500 chars) ---\n%s...", truncate(email.HTMLBody, 500))
	log.Printf("%s\n", separator)
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// Dispatcher sends notifications off the caller's path. Failures and panics
// are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier, timeout: defaultNotifyTimeout}
}

// Dispatch starts delivery in a goroutine and returns immediately
func (d *Dispatcher) Dispatch(n InteractionNotification) {
	if d == nil || d.notifier == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[NOTIFY] Recovered from panic sending notification: %v", r)
				NotificationsSent.WithLabelValues("error").Inc()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, n); err != nil {
			log.Printf("[NOTIFY] Failed to send %s notification for %s: %v", n.InteractionType, n.ClientName, err)
			NotificationsSent.WithLabelValues("error").Inc()
			return
		}
		NotificationsSent.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until every dispatched notification has finished
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
