package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PrimePass/internal/pkg/billing"
	"github.com/ManuelReschke/PrimePass/internal/pkg/jobqueue"
)

// MailSender delivers a plain-text mail.
type MailSender interface {
	Send(to, subject, body string) error
}

// Dispatcher delivers billing events directly. Users are addressed by their
// Telegram id, which doubles as the private chat id.
type Dispatcher struct {
	sender         MessageSender
	mailer         MailSender
	adminChatIDs   []string
	adminEmail     string
	supportContact string
}

// NewDispatcher creates a dispatcher. mailer may be nil.
func NewDispatcher(sender MessageSender, mailer MailSender, cfg Config) *Dispatcher {
	support := cfg.SupportContact
	if support == "" {
		support = defaultSupportContact
	}
	return &Dispatcher{
		sender:         sender,
		mailer:         mailer,
		adminChatIDs:   cfg.AdminChatIDs,
		adminEmail:     cfg.AdminEmail,
		supportContact: support,
	}
}

// NotifyUser sends the user-facing text of event to userID.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID string, event billing.Event) error {
	text, ok := UserMessage(event, d.supportContact)
	if !ok {
		return nil
	}
	if d.sender == nil {
		log.Debugf("[Notify] No message sender configured, dropping %s for user %s", event.Kind, userID)
		return nil
	}
	if err := d.sender.SendMessage(ctx, userID, text); err != nil {
		return fmt.Errorf("notify user %s: %w", userID, err)
	}
	return nil
}

// NotifyAdmin sends the alert to every admin chat and to the admin mailbox.
// Each target is tried. An error is returned only when no target received
// the alert, so a retry never repeats it to admins who already have it.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, event billing.Event) error {
	subject, text := AdminMessage(event)
	var errs []error
	delivered := 0

	if d.sender != nil {
		for _, chatID := range d.adminChatIDs {
			if err := d.sender.SendMessage(ctx, chatID, text); err != nil {
				errs = append(errs, fmt.Errorf("admin chat %s: %w", chatID, err))
				continue
			}
			delivered++
		}
	}
	if d.mailer != nil && d.adminEmail != "" {
		if err := d.mailer.Send(d.adminEmail, subject, plainText(text)); err != nil {
			errs = append(errs, fmt.Errorf("admin mail: %w", err))
		} else {
			delivered++
		}
	}
	if len(d.adminChatIDs) == 0 && d.adminEmail == "" {
		log.Warnf("[Notify] No admin target configured, alert %s dropped", event.Kind)
	}

	err := errors.Join(errs...)
	if err != nil && delivered > 0 {
		log.Warnf("[Notify] Alert %s reached %d admin target(s), others failed: %v", event.Kind, delivered, err)
		return nil
	}
	return err
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func plainText(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, ""))
}

// Enqueuer puts a job on the background queue.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

type userJob struct {
	UserID string        `json:"user_id"`
	Event  billing.Event `json:"event"`
}

type adminJob struct {
	Event billing.Event `json:"event"`
}

// QueuedNotifier hands events to the job queue so webhook requests never
// wait on Telegram or SMTP.
type QueuedNotifier struct {
	queue Enqueuer
}

// NewQueuedNotifier creates a notifier backed by queue.
func NewQueuedNotifier(queue Enqueuer) *QueuedNotifier {
	return &QueuedNotifier{queue: queue}
}

func (n *QueuedNotifier) NotifyUser(ctx context.Context, userID string, event billing.Event) error {
	payload, err := jobqueue.ToPayload(userJob{UserID: userID, Event: event})
	if err != nil {
		return err
	}
	_, err = n.queue.EnqueueJob(ctx, jobqueue.JobTypeNotifyUser, payload)
	return err
}

func (n *QueuedNotifier) NotifyAdmin(ctx context.Context, event billing.Event) error {
	payload, err := jobqueue.ToPayload(adminJob{Event: event})
	if err != nil {
		return err
	}
	_, err = n.queue.EnqueueJob(ctx, jobqueue.JobTypeNotifyAdmin, payload)
	return err
}

// Registrar accepts job handlers.
type Registrar interface {
	Handle(jobType jobqueue.JobType, h jobqueue.Handler)
}

// RegisterHandlers installs the job handlers that deliver queued events
// through d.
func RegisterHandlers(r Registrar, d billing.Notifier) {
	r.Handle(jobqueue.JobTypeNotifyUser, func(ctx context.Context, job *jobqueue.Job) error {
		var p userJob
		if err := job.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode notify_user payload: %w", err)
		}
		return d.NotifyUser(ctx, p.UserID, p.Event)
	})
	r.Handle(jobqueue.JobTypeNotifyAdmin, func(ctx context.Context, job *jobqueue.Job) error {
		var p adminJob
		if err := job.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode notify_admin payload: %w", err)
		}
		return d.NotifyAdmin(ctx, p.Event)
	})
}
