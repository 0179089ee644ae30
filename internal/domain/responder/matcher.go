package responder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/resqnow/resqnow/internal/domain/emergency"
	"github.com/resqnow/resqnow/internal/domain/profile"
	"github.com/resqnow/resqnow/internal/geo"
)

// Position is a responder's last known location.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Unsubscribe stops a running subscription. Safe to call more than once.
type Unsubscribe func()

// Subscription delivers the active-emergency set as an initial snapshot
// followed by incremental updates. A delivery failure goes to onError and the
// subscription keeps running; it resumes pushing snapshots on its own once
// the store is reachable again.
type Subscription interface {
	Start(onNext func([]*emergency.Record), onError func(error)) Unsubscribe
}

// ActiveLister is the slice of the emergency store the matcher reads.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]*emergency.Record, error)
}

// ProfileStore resolves reporter profiles for view enrichment.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// Matcher builds responder-facing views of active emergencies: profile
// enrichment, distance ranking, and the nearby radius filter.
type Matcher struct {
	profiles     ProfileStore
	radiusMeters float64
	logger       zerolog.Logger
	now          func() time.Time
}

func NewMatcher(profiles ProfileStore, radiusMeters float64, logger zerolog.Logger) *Matcher {
	return &Matcher{
		profiles:     profiles,
		radiusMeters: radiusMeters,
		logger:       logger,
		now:          time.Now,
	}
}

// BuildViews enriches and sorts the records for a responder at pos. A record
// whose reporter has no profile is still shown with UserInfo nil; a nil pos
// leaves every distance unknown, so the sort falls back to recency.
func (m *Matcher) BuildViews(ctx context.Context, records []*emergency.Record, pos *Position) []*View {
	now := m.now()
	views := make([]*View, 0, len(records))
	for _, rec := range records {
		v := &View{
			Record:  rec,
			TimeAgo: FormatTimeAgo(rec.ReportedAt, now),
		}
		if pos != nil {
			d := geo.DistanceKm(pos.Latitude, pos.Longitude, rec.Location.Latitude, rec.Location.Longitude)
			v.DistanceKm = &d
		}
		prof, err := m.profiles.Get(ctx, rec.ReporterID)
		switch {
		case err == nil:
			v.UserInfo = prof
		case !errors.Is(err, profile.ErrProfileNotFound):
			m.logger.Warn().Err(err).
				Str("reporter_id", rec.ReporterID).
				Msg("could not resolve reporter profile")
		}
		views = append(views, v)
	}
	SortViews(views)
	return views
}

// NearbyViews is BuildViews restricted to records within the configured
// radius of pos.
func (m *Matcher) NearbyViews(ctx context.Context, records []*emergency.Record, pos Position) []*View {
	var nearby []*emergency.Record
	for _, rec := range records {
		d := geo.DistanceMeters(pos.Latitude, pos.Longitude, rec.Location.Latitude, rec.Location.Longitude)
		if d <= m.radiusMeters {
			nearby = append(nearby, rec)
		}
	}
	return m.BuildViews(ctx, nearby, &pos)
}

// Watch runs a subscription and hands each snapshot to onNext as enriched
// views. Errors are forwarded to onError without stopping the watch.
func (m *Matcher) Watch(ctx context.Context, sub Subscription, pos *Position,
	onNext func([]*View), onError func(error)) Unsubscribe {
	return sub.Start(
		func(records []*emergency.Record) {
			onNext(m.BuildViews(ctx, records, pos))
		},
		onError,
	)
}

// StoreSubscription satisfies Subscription by polling the store. It pushes an
// initial snapshot immediately and a fresh one every interval; a failed poll
// is reported and the loop keeps going.
type StoreSubscription struct {
	store    ActiveLister
	interval time.Duration
}

const defaultPollInterval = 5 * time.Second

func NewStoreSubscription(store ActiveLister, interval time.Duration) *StoreSubscription {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &StoreSubscription{store: store, interval: interval}
}

func (s *StoreSubscription) Start(onNext func([]*emergency.Record), onError func(error)) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		poll := func() {
			records, err := s.store.ListActive(ctx)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return
			}
			onNext(records)
		}

		poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()
	return func() { cancel() }
}
