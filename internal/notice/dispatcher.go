// Package notice sends expiry notices to clients that are due one.
package notice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"renewdesk/internal/api"
	"renewdesk/internal/format"
	"renewdesk/internal/lifecycle"
	"renewdesk/internal/metrics"
	"renewdesk/internal/model"
	"renewdesk/internal/repo"
)

// ErrBusy is returned when a run is already in progress.
var ErrBusy = errors.New("notice dispatch already running")

// Source is the remote side of notice dispatch.
type Source interface {
	PendingNotices(ctx context.Context) ([]model.PendingNotice, error)
	ListConfigs(ctx context.Context, category string) ([]model.ConfigEntry, error)
	GetTemplate(ctx context.Context, id int64) (*model.Template, error)
	DefaultTemplate(ctx context.Context, product model.ProductType, kind model.TemplateKind) (*model.Template, error)
	MarkMessageSent(ctx context.Context, id int64) (string, error)
}

// Messenger delivers text to an international phone number given as digits.
type Messenger interface {
	SendText(ctx context.Context, number, text string) error
}

// DispatchLog keeps the local record of delivery attempts.
type DispatchLog interface {
	RecordDispatch(ctx context.Context, rec repo.DispatchRecord) (*repo.DispatchRecord, error)
	LastDispatch(ctx context.Context, clientID int64) (time.Time, bool, error)
}

// Config holds dispatcher settings.
type Config struct {
	// Channel names the messenger in the dispatch log.
	Channel string
	// Defaults apply when the remote settings omit a value.
	Defaults Defaults
	// Suppression is the minimum gap between two notices to one client.
	Suppression time.Duration
	Location    *time.Location
	Metrics     *metrics.Metrics
}

// Report counts the outcomes of one run.
type Report struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Outcomes recorded in the notices metric.
const (
	outcomeSent          = "sent"
	outcomeFailed        = "failed"
	outcomeOutsideWindow = "outside_window"
	outcomeSuppressed    = "suppressed"
	outcomeNoTemplate    = "no_template"
	outcomeInvalidPhone  = "invalid_phone"
)

// Dispatcher processes pending notices one run at a time.
type Dispatcher struct {
	source    Source
	messenger Messenger
	log       DispatchLog
	cfg       Config
	logger    *slog.Logger
	limiter   *rate.Limiter
	now       func() time.Time
	running   sync.Mutex
}

// New creates a dispatcher. log may be nil, which disables suppression.
func New(source Source, messenger Messenger, log DispatchLog, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Channel == "" {
		cfg.Channel = "remote"
	}
	return &Dispatcher{
		source:    source,
		messenger: messenger,
		log:       log,
		cfg:       cfg,
		logger:    logger.With("component", "notice"),
		limiter:   rate.NewLimiter(every(cfg.Defaults.Interval), 1),
		now:       time.Now,
	}
}

// Run sends every pending notice allowed by the business window. Messages are
// spaced by the configured interval, also across runs.
func (d *Dispatcher) Run(ctx context.Context) (Report, error) {
	if !d.running.TryLock() {
		return Report{}, ErrBusy
	}
	defer d.running.Unlock()

	var report Report
	pending, err := d.source.PendingNotices(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending notices: %w", err)
	}
	if len(pending) == 0 {
		return report, nil
	}

	settings := d.settings(ctx)
	d.limiter.SetLimit(every(settings.Interval))

	for _, n := range pending {
		outcome, err := d.dispatch(ctx, n, settings)
		if err != nil {
			return report, err
		}
		d.count(outcome)
		switch outcome {
		case outcomeSent:
			report.Sent++
		case outcomeFailed, outcomeInvalidPhone:
			report.Failed++
		default:
			report.Skipped++
		}
	}
	d.logger.Info("notice run finished", "sent", report.Sent, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

func (d *Dispatcher) settings(ctx context.Context) Settings {
	entries, err := d.source.ListConfigs(ctx, "whatsapp")
	if err != nil {
		d.logger.Warn("load dispatch settings failed, using defaults", "error", err)
		entries = nil
	}
	s, err := ResolveSettings(entries, d.cfg.Defaults)
	if err != nil {
		d.logger.Warn("business window unreadable, sending at any time", "error", err)
	}
	return s
}

// dispatch handles one notice. The error is non-nil only when ctx ends.
func (d *Dispatcher) dispatch(ctx context.Context, n model.PendingNotice, s Settings) (string, error) {
	c := n.Client
	logger := d.logger.With("client_id", c.ID, "notice_kind", n.Kind)

	now := d.now().In(d.cfg.Location)
	if !s.Window.Allows(now) {
		return outcomeOutsideWindow, nil
	}
	if d.suppressed(ctx, c.ID, now) {
		logger.Debug("notice suppressed, client messaged recently")
		return outcomeSuppressed, nil
	}

	number, ok := format.WhatsAppNumber(c.Phone)
	if !ok {
		d.record(ctx, n, "", errors.New("invalid phone number"))
		logger.Warn("notice skipped, invalid phone", "phone", c.Phone)
		return outcomeInvalidPhone, nil
	}

	text, err := d.message(ctx, n, now)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warn("no template for notice", "error", err)
		return outcomeNoTemplate, nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait send slot: %w", err)
	}

	if err := d.messenger.SendText(ctx, number, text); err != nil {
		d.record(ctx, n, number, err)
		logger.Error("send notice failed", "error", err)
		return outcomeFailed, nil
	}
	if _, err := d.source.MarkMessageSent(ctx, c.ID); err != nil {
		logger.Warn("mark message sent failed", "error", err)
	}
	d.record(ctx, n, number, nil)
	logger.Info("notice sent")
	return outcomeSent, nil
}

func (d *Dispatcher) suppressed(ctx context.Context, clientID int64, now time.Time) bool {
	if d.log == nil || d.cfg.Suppression <= 0 {
		return false
	}
	last, ok, err := d.log.LastDispatch(ctx, clientID)
	if err != nil {
		d.logger.Warn("read dispatch log failed", "client_id", clientID, "error", err)
		return false
	}
	return ok && now.Sub(last) < d.cfg.Suppression
}

// message resolves the client's template, falling back to the product default.
func (d *Dispatcher) message(ctx context.Context, n model.PendingNotice, now time.Time) (string, error) {
	c := n.Client
	var tmpl *model.Template
	if c.TemplateID != nil {
		t, err := d.source.GetTemplate(ctx, *c.TemplateID)
		if err != nil {
			d.logger.Debug("client template unavailable, using default", "template_id", *c.TemplateID, "error", api.UserMessage(err))
		} else {
			tmpl = t
		}
	}
	if tmpl == nil {
		t, err := d.source.DefaultTemplate(ctx, c.ProductType, templateKind(n.Kind))
		if err != nil {
			return "", fmt.Errorf("default template: %w", err)
		}
		tmpl = t
	}
	if tmpl == nil {
		return "", errors.New("default template: empty response")
	}

	days, ok := lifecycle.DaysRemaining(c.ExpiresOn, now)
	if !ok {
		days = n.DaysLeft
	}
	return Render(tmpl.Content, c, days), nil
}

func (d *Dispatcher) record(ctx context.Context, n model.PendingNotice, number string, sendErr error) {
	if d.log == nil {
		return
	}
	rec := repo.DispatchRecord{
		ClientID:   n.Client.ID,
		NoticeKind: string(n.Kind),
		Channel:    d.cfg.Channel,
		Phone:      number,
		Status:     repo.DispatchSent,
	}
	if sendErr != nil {
		msg := sendErr.Error()
		rec.Status = repo.DispatchFailed
		rec.Error = &msg
	}
	if _, err := d.log.RecordDispatch(ctx, rec); err != nil {
		d.logger.Warn("record dispatch failed", "client_id", n.Client.ID, "error", err)
	}
}

func (d *Dispatcher) count(outcome string) {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.NoticesDispatched.WithLabelValues(outcome).Inc()
	}
}

func every(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}

// TestSender is the remote test-message endpoint.
type TestSender interface {
	SendTestMessage(ctx context.Context, in api.TestMessage) error
}

// Remote sends notices through the remote service's channel.
type Remote struct {
	API TestSender
}

// SendText satisfies Messenger.
func (r Remote) SendText(ctx context.Context, number, text string) error {
	return r.API.SendTestMessage(ctx, api.TestMessage{Number: number, Message: text})
}
