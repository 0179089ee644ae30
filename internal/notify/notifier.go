// Package notify implements the emergency-contact fan-out: opening a
// pre-filled SMS compose intent for each contact in order, tolerating
// per-contact failures, and reporting an aggregate result.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/resqnow/resqnow/internal/platform/intents"
)

// DefaultPacing is the delay inserted between consecutive SMS compose
// attempts so the dialogs do not overlap on the device.
const DefaultPacing = 1500 * time.Millisecond

// Contact is a single emergency contact to notify.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Result aggregates a fan-out: how many compose intents opened (not how many
// messages the user actually sent), out of how many contacts, and the names
// of the contacts whose intent opened, in attempt order.
type Result struct {
	SuccessCount  int      `json:"success_count"`
	Total         int      `json:"total"`
	NotifiedNames []string `json:"notified_names"`
}

// Notifier fans a message out to emergency contacts sequentially. The pacing
// sleep is injected so tests can observe ordering without waiting on the wall
// clock.
type Notifier struct {
	opener      intents.Opener
	countryCode string
	pacing      time.Duration
	sleep       func(ctx context.Context, d time.Duration)
	logger      zerolog.Logger
}

// NewNotifier creates a Notifier. countryCode is the calling code substituted
// for a leading "0" in local numbers (e.g. "+972"); pacing <= 0 falls back to
// DefaultPacing.
func NewNotifier(opener intents.Opener, countryCode string, pacing time.Duration, logger zerolog.Logger) *Notifier {
	if pacing <= 0 {
		pacing = DefaultPacing
	}
	return &Notifier{
		opener:      opener,
		countryCode: countryCode,
		pacing:      pacing,
		sleep:       sleepCtx,
		logger:      logger,
	}
}

// SetSleep replaces the pacing sleep. Tests use this to record pacing calls
// instead of blocking.
func (n *Notifier) SetSleep(fn func(ctx context.Context, d time.Duration)) {
	n.sleep = fn
}

// NormalizePhone converts a free-text phone number to a dialable
// international form: all characters except digits and a leading "+" are
// stripped, a leading "0" becomes the configured country calling code, and a
// missing "+" is prepended.
func (n *Notifier) NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	for i, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	phone := b.String()

	switch {
	case strings.HasPrefix(phone, "0"):
		phone = n.countryCode + phone[1:]
	case phone != "" && !strings.HasPrefix(phone, "+"):
		phone = "+" + phone
	}
	return phone
}

// NotifyAll opens an SMS compose intent per contact, strictly in order, with
// the pacing delay before every attempt after the first. A contact whose
// intent cannot be opened is skipped, never aborting the loop; when the
// primary URI encoding is unsupported the alternate encoding is tried once
// before giving up on that contact.
func (n *Notifier) NotifyAll(ctx context.Context, contacts []Contact, message string) Result {
	result := Result{Total: len(contacts), NotifiedNames: []string{}}

	for i, contact := range contacts {
		if i > 0 {
			n.sleep(ctx, n.pacing)
		}

		phone := n.NormalizePhone(contact.Phone)
		res := n.opener.Open(ctx, intents.SMSCompose(phone, message))
		if res == intents.NotSupported {
			res = n.opener.Open(ctx, intents.SMSComposeAlt(phone, message))
		}

		if res == intents.Opened {
			result.SuccessCount++
			result.NotifiedNames = append(result.NotifiedNames, contact.Name)
		} else {
			n.logger.Warn().
				Str("contact", contact.Name).
				Str("result", res.String()).
				Msg("sms compose intent not opened")
		}
	}

	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
