package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resqnow/resqnow/internal/domain/profile"
	"github.com/resqnow/resqnow/internal/notify"
	"github.com/resqnow/resqnow/internal/platform/intents"
	"github.com/resqnow/resqnow/internal/platform/metrics"
	"github.com/resqnow/resqnow/internal/platform/websocket"
)

// ErrLocationUnavailable is returned when a report carries no usable
// coordinates. An emergency is never created without a position.
var ErrLocationUnavailable = errors.New("location unavailable")

// ErrNotReporter is returned when a caller acts on an emergency reported by
// someone else. Sharing decisions and the medical summary belong to the
// reporter.
var ErrNotReporter = errors.New("caller is not the reporter")

// PromptAnswer is the caller's answer to the "share location with your
// emergency contacts?" prompt. AnswerNone means the caller has not been asked
// yet.
type PromptAnswer int

const (
	AnswerNone PromptAnswer = iota
	AnswerCancel
	AnswerDeny
	AnswerAllow
)

// ParsePromptAnswer maps the wire form of a prompt answer. The empty string
// means no answer was given.
func ParsePromptAnswer(s string) (PromptAnswer, error) {
	switch s {
	case "":
		return AnswerNone, nil
	case "cancel":
		return AnswerCancel, nil
	case "deny":
		return AnswerDeny, nil
	case "allow":
		return AnswerAllow, nil
	default:
		return AnswerNone, fmt.Errorf("unknown prompt answer %q", s)
	}
}

// ShareAction tells the client what the share attempt did, and what UI (if
// any) it must now present.
type ShareAction string

const (
	// ActionPromptRequired: the auto-share preference is unset and no answer
	// was supplied; the client must ask and retry with one.
	ActionPromptRequired ShareAction = "prompt_required"
	// ActionCancelled: the caller dismissed the prompt; nothing was shared
	// and no preference was stored.
	ActionCancelled ShareAction = "cancelled"
	// ActionNotified: at least one contact's SMS compose intent opened.
	ActionNotified ShareAction = "notified"
	// ActionShareSheet: the native share sheet was opened instead of (or as a
	// fallback to) the contact fan-out.
	ActionShareSheet ShareAction = "share_sheet"
)

// ShareOutcome reports what happened when sharing an emergency location.
type ShareOutcome struct {
	Action  ShareAction    `json:"action"`
	Message string         `json:"message,omitempty"`
	Notify  *notify.Result `json:"notify,omitempty"`
}

// ProfileStore is the slice of the profile service the dispatcher needs.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	SetAutoShare(ctx context.Context, userID string, enabled bool) error
}

// ContactNotifier fans a message out to emergency contacts.
type ContactNotifier interface {
	NotifyAll(ctx context.Context, contacts []notify.Contact, message string) notify.Result
}

// Broadcaster pushes events to live websocket subscribers.
type Broadcaster interface {
	Broadcast(topic string, event websocket.Event)
}

// Service coordinates emergency dispatch: creating and resolving records,
// notifying contacts, and pushing live updates. All collaborators are
// injected; none are reached through globals.
type Service struct {
	repo     Repository
	profiles ProfileStore
	notifier ContactNotifier
	opener   intents.Opener
	hub      Broadcaster
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the dispatcher. hub may be nil when no live feed is
// running.
func NewService(repo Repository, profiles ProfileStore, notifier ContactNotifier,
	opener intents.Opener, hub Broadcaster, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		profiles: profiles,
		notifier: notifier,
		opener:   opener,
		hub:      hub,
		logger:   logger,
		now:      time.Now,
	}
}

func validLocation(loc Location) bool {
	if math.IsNaN(loc.Latitude) || math.IsInf(loc.Latitude, 0) ||
		math.IsNaN(loc.Longitude) || math.IsInf(loc.Longitude, 0) {
		return false
	}
	return loc.Latitude >= -90 && loc.Latitude <= 90 &&
		loc.Longitude >= -180 && loc.Longitude <= 180
}

// Create records a new active emergency for the reporter and announces it on
// the live feed.
func (s *Service) Create(ctx context.Context, reporterID string, loc Location) (*Record, error) {
	if reporterID == "" {
		return nil, fmt.Errorf("reporter_id is required")
	}
	if !validLocation(loc) {
		return nil, ErrLocationUnavailable
	}

	rec := &Record{
		ReporterID: reporterID,
		Location:   loc,
		Status:     StatusActive,
		ReportedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	metrics.EmergenciesReported.Inc()
	s.logger.Info().
		Str("emergency_id", rec.ID.String()).
		Float64("latitude", loc.Latitude).
		Float64("longitude", loc.Longitude).
		Msg("emergency reported")

	s.broadcast(websocket.EventEmergencyCreated, rec)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*Record, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]*Record, int, error) {
	return s.repo.ListByReporter(ctx, reporterID, limit, offset)
}

// Resolve closes an active emergency. Resolving an already-resolved record
// fails with ErrAlreadyResolved; resolution is never undone.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, resolverID string) (*Record, error) {
	if resolverID == "" {
		return nil, fmt.Errorf("resolver_id is required")
	}
	rec, err := s.repo.Resolve(ctx, id, resolverID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	metrics.EmergenciesResolved.Inc()
	s.logger.Info().
		Str("emergency_id", rec.ID.String()).
		Str("resolved_by", resolverID).
		Msg("emergency resolved")

	s.broadcast(websocket.EventEmergencyResolved, rec)
	return rec, nil
}

// ShareLocation runs the contact-notification policy for an emergency:
//
//   - no emergency contacts on file: open the native share sheet, never the
//     SMS fan-out;
//   - auto-share preference unset: require a prompt answer, persisting it
//     before acting on it;
//   - preference (or answer) is "share": fan out to every contact, falling
//     back to the share sheet exactly once when not a single compose intent
//     opened;
//   - preference (or answer) is "don't share": open the share sheet so the
//     user can still pass the location on manually.
//
// Only the reporter may run it: the answer persists the reporter's own
// auto-share preference and fans out to the reporter's own contacts.
func (s *Service) ShareLocation(ctx context.Context, id uuid.UUID, callerID string, answer PromptAnswer) (*ShareOutcome, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.ReporterID != callerID {
		return nil, ErrNotReporter
	}
	msg := BuildLocationMessage(rec.Location, rec.ReportedAt)

	prof, err := s.profiles.Get(ctx, rec.ReporterID)
	if err != nil && !errors.Is(err, profile.ErrProfileNotFound) {
		return nil, err
	}

	var contacts []notify.Contact
	autoShare := (*bool)(nil)
	if prof != nil {
		for _, c := range prof.EmergencyContacts {
			contacts = append(contacts, notify.Contact{Name: c.Name, Phone: c.Phone})
		}
		autoShare = prof.AutoShareLocationToContacts
	}

	if len(contacts) == 0 {
		return s.openShareSheet(ctx, msg, nil), nil
	}

	share := false
	switch {
	case autoShare != nil:
		share = *autoShare
	case answer == AnswerNone:
		return &ShareOutcome{Action: ActionPromptRequired, Message: msg}, nil
	case answer == AnswerCancel:
		return &ShareOutcome{Action: ActionCancelled}, nil
	default:
		share = answer == AnswerAllow
		if err := s.profiles.SetAutoShare(ctx, rec.ReporterID, share); err != nil {
			return nil, err
		}
	}

	if !share {
		return s.openShareSheet(ctx, msg, nil), nil
	}

	result := s.notifier.NotifyAll(ctx, contacts, msg)
	metrics.ContactNotifyAttempts.WithLabelValues("opened").Add(float64(result.SuccessCount))
	metrics.ContactNotifyAttempts.WithLabelValues("failed").Add(float64(result.Total - result.SuccessCount))

	if result.SuccessCount == 0 {
		s.logger.Warn().
			Str("emergency_id", rec.ID.String()).
			Int("contacts", result.Total).
			Msg("no contact could be notified, falling back to share sheet")
		return s.openShareSheet(ctx, msg, &result), nil
	}
	return &ShareOutcome{Action: ActionNotified, Message: msg, Notify: &result}, nil
}

// MedicalInfoMessage builds the shareable medical summary for an emergency's
// reporter. The reporter may always read it; anyone else needs the responder
// flag, which the handler derives from the caller's account status.
func (s *Service) MedicalInfoMessage(ctx context.Context, id uuid.UUID, callerID string, responder bool) (string, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.ReporterID != callerID && !responder {
		return "", ErrNotReporter
	}
	prof, err := s.profiles.Get(ctx, rec.ReporterID)
	if err != nil {
		return "", err
	}
	return BuildMedicalInfoMessage(prof, rec), nil
}

func (s *Service) openShareSheet(ctx context.Context, msg string, result *notify.Result) *ShareOutcome {
	s.opener.ShareSheet(ctx, msg, "Emergency Location")
	return &ShareOutcome{Action: ActionShareSheet, Message: msg, Notify: result}
}

func (s *Service) broadcast(eventType string, rec *Record) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode emergency event")
		return
	}
	s.hub.Broadcast(websocket.TopicActiveEmergencies, websocket.Event{
		Type:        eventType,
		Topic:       websocket.TopicActiveEmergencies,
		EmergencyID: rec.ID.String(),
		Timestamp:   s.now().UTC(),
		Data:        data,
	})
}
