// Package notify emails donors and recipients when their appointments and
// requests change status.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/ananduvinod04/hemohub/internal/config"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages. Delivery failures are logged by the notifier and
// never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, m Message)
}

// Noop discards every message.
type Noop struct{}

func (Noop) Notify(context.Context, Message) {}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier sends plain-text mail over SMTP.
type MailNotifier struct {
	from   string
	dialer sender
	async  bool
}

// New returns a MailNotifier when SMTP is configured and Noop otherwise.
func New(cfg config.SMTPConfig) Notifier {
	if cfg.Host == "" || cfg.From == "" {
		return Noop{}
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &MailNotifier{from: cfg.From, dialer: d, async: true}
}

// Build converts m into a gomail message from the configured sender.
func (n *MailNotifier) Build(m Message) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg
}

func (n *MailNotifier) Notify(ctx context.Context, m Message) {
	if m.To == "" {
		return
	}
	send := func() {
		if err := n.dialer.DialAndSend(n.Build(m)); err != nil {
			logger.Warnf("notify: send %q to %s: %v", m.Subject, m.To, err)
		}
	}
	if n.async {
		go send()
		return
	}
	send()
}

// AppointmentStatus tells a donor their appointment moved to a new status.
func AppointmentStatus(d *models.Donor, a *models.Appointment) Message {
	return Message{
		To:      d.Email,
		Subject: fmt.Sprintf("Your appointment is %s", a.Status),
		Body: fmt.Sprintf("Hello %s,\n\nYour %s appointment at %s on %s is now %s.\n\nHemoHub",
			d.Name, a.Type, a.HospitalName, a.Date.Format("2 Jan 2006"), a.Status),
	}
}

// RequestStatus tells a recipient their blood request moved to a new status.
func RequestStatus(r *models.Recipient, req *models.RecipientRequest, hospital string) Message {
	return Message{
		To:      r.Email,
		Subject: fmt.Sprintf("Your blood request is %s", req.Status),
		Body: fmt.Sprintf("Hello %s,\n\nYour %s request for %d unit(s) of %s at %s is now %s.\n\nHemoHub",
			r.Name, req.RequestType, req.Quantity, req.BloodGroup, hospital, req.Status),
	}
}

// Recorder keeps every message in memory. Tests use it in place of SMTP.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
}

func (r *Recorder) Notify(_ context.Context, m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}
