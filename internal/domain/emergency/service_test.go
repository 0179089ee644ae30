package emergency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/resqnow/resqnow/internal/domain/profile"
	"github.com/resqnow/resqnow/internal/notify"
	"github.com/resqnow/resqnow/internal/platform/intents"
	"github.com/resqnow/resqnow/internal/platform/websocket"
)

// -- Mock repository --

type mockRepo struct {
	records map[uuid.UUID]*Record
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	stored := *rec
	m.records[rec.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

func (m *mockRepo) ListActive(_ context.Context) ([]*Record, error) {
	var items []*Record
	for _, rec := range m.records {
		if rec.Active() {
			items = append(items, rec)
		}
	}
	return items, nil
}

func (m *mockRepo) ListByReporter(_ context.Context, reporterID string, limit, offset int) ([]*Record, int, error) {
	var items []*Record
	for _, rec := range m.records {
		if rec.ReporterID == reporterID {
			items = append(items, rec)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Resolve(_ context.Context, id uuid.UUID, resolverID string, at time.Time) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	if !rec.Active() {
		return nil, ErrAlreadyResolved
	}
	rec.Status = StatusResolved
	rec.ResolvedAt = &at
	rec.ResolvedBy = &resolverID
	return rec, nil
}

// -- Mock profile store --

type mockProfiles struct {
	profiles       map[string]*profile.Profile
	autoShareCalls []bool
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{profiles: make(map[string]*profile.Profile)}
}

func (m *mockProfiles) Get(_ context.Context, userID string) (*profile.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfiles) SetAutoShare(_ context.Context, userID string, enabled bool) error {
	p, ok := m.profiles[userID]
	if !ok {
		return profile.ErrProfileNotFound
	}
	p.AutoShareLocationToContacts = &enabled
	m.autoShareCalls = append(m.autoShareCalls, enabled)
	return nil
}

// -- Mock notifier --

type notifyCall struct {
	contacts []notify.Contact
	message  string
}

type mockNotifier struct {
	result notify.Result
	calls  []notifyCall
}

func (m *mockNotifier) NotifyAll(_ context.Context, contacts []notify.Contact, message string) notify.Result {
	m.calls = append(m.calls, notifyCall{contacts: contacts, message: message})
	r := m.result
	r.Total = len(contacts)
	return r
}

// -- Mock hub --

type mockHub struct {
	events []websocket.Event
}

func (m *mockHub) Broadcast(_ string, event websocket.Event) {
	m.events = append(m.events, event)
}

// -- Fixture --

type fixture struct {
	svc      *Service
	repo     *mockRepo
	profiles *mockProfiles
	notifier *mockNotifier
	opener   *intents.MockOpener
	hub      *mockHub
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newMockRepo(),
		profiles: newMockProfiles(),
		notifier: &mockNotifier{},
		opener:   &intents.MockOpener{},
		hub:      &mockHub{},
	}
	f.svc = NewService(f.repo, f.profiles, f.notifier, f.opener, f.hub, zerolog.Nop())
	return f
}

func (f *fixture) withProfile(userID string, contacts []profile.EmergencyContact, autoShare *bool) {
	f.profiles.profiles[userID] = &profile.Profile{
		UserID:                      userID,
		EmergencyContacts:           contacts,
		AutoShareLocationToContacts: autoShare,
	}
}

func (f *fixture) reportEmergency(t *testing.T, reporterID string) *Record {
	t.Helper()
	rec, err := f.svc.Create(context.Background(), reporterID,
		Location{Latitude: 32.0853, Longitude: 34.7818})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return rec
}

func boolptr(b bool) *bool { return &b }

var testContacts = []profile.EmergencyContact{
	{Name: "Dana", Phone: "050-111-1111"},
	{Name: "Noam", Phone: "050-222-2222"},
}

// -- Create --

func TestCreate_RequiresReporter(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Create(context.Background(), "", Location{Latitude: 1, Longitude: 1}); err == nil {
		t.Error("expected error for missing reporter")
	}
}

func TestCreate_RejectsBadCoordinates(t *testing.T) {
	f := newFixture()
	bad := []Location{
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: 181},
		{Latitude: -90.0001, Longitude: 0},
	}
	for _, loc := range bad {
		if _, err := f.svc.Create(context.Background(), "u1", loc); err != ErrLocationUnavailable {
			t.Errorf("location %+v: expected ErrLocationUnavailable, got %v", loc, err)
		}
	}
}

func TestCreate_BroadcastsCreatedEvent(t *testing.T) {
	f := newFixture()
	rec := f.reportEmergency(t, "u1")

	if rec.Status != StatusActive {
		t.Errorf("expected active status, got %q", rec.Status)
	}
	if len(f.hub.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(f.hub.events))
	}
	ev := f.hub.events[0]
	if ev.Type != websocket.EventEmergencyCreated {
		t.Errorf("expected %q event, got %q", websocket.EventEmergencyCreated, ev.Type)
	}
	if ev.EmergencyID != rec.ID.String() {
		t.Errorf("expected event for %s, got %s", rec.ID, ev.EmergencyID)
	}
}

// -- Resolve --

func TestResolve_MarksResolvedOnce(t *testing.T) {
	f := newFixture()
	rec := f.reportEmergency(t, "u1")

	resolved, err := f.svc.Resolve(context.Background(), rec.ID, "responder-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Errorf("expected resolved status, got %q", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != "responder-1" {
		t.Errorf("expected resolver to be recorded, got %v", resolved.ResolvedBy)
	}

	if _, err := f.svc.Resolve(context.Background(), rec.ID, "responder-2"); err != ErrAlreadyResolved {
		t.Errorf("expected ErrAlreadyResolved on second resolve, got %v", err)
	}
}

func TestResolve_Missing(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Resolve(context.Background(), uuid.New(), "responder-1"); err != ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

// -- ShareLocation --

func TestShareLocation_NoContactsOpensShareSheetOnly(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", nil, nil)
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerNone)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionShareSheet {
		t.Errorf("expected share_sheet, got %q", outcome.Action)
	}
	if len(f.opener.Shares()) != 1 {
		t.Errorf("expected exactly one share sheet, got %d", len(f.opener.Shares()))
	}
	if len(f.notifier.calls) != 0 {
		t.Errorf("expected no contact fan-out, got %d calls", len(f.notifier.calls))
	}
}

func TestShareLocation_NoProfileOpensShareSheet(t *testing.T) {
	f := newFixture()
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerNone)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionShareSheet {
		t.Errorf("expected share_sheet, got %q", outcome.Action)
	}
}

func TestShareLocation_UnsetFlagRequiresPrompt(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerNone)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionPromptRequired {
		t.Errorf("expected prompt_required, got %q", outcome.Action)
	}
	if len(f.notifier.calls) != 0 || len(f.opener.Shares()) != 0 {
		t.Error("expected no side effects before the prompt is answered")
	}
	if len(f.profiles.autoShareCalls) != 0 {
		t.Error("expected no preference write before the prompt is answered")
	}
}

func TestShareLocation_CancelStoresNothing(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerCancel)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionCancelled {
		t.Errorf("expected cancelled, got %q", outcome.Action)
	}
	if len(f.profiles.autoShareCalls) != 0 {
		t.Error("cancel must not persist a preference")
	}
	if len(f.notifier.calls) != 0 || len(f.opener.Shares()) != 0 {
		t.Error("cancel must not share anything")
	}
}

func TestShareLocation_AllowPersistsAndNotifies(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	f.notifier.result = notify.Result{SuccessCount: 2, NotifiedNames: []string{"Dana", "Noam"}}
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerAllow)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionNotified {
		t.Errorf("expected notified, got %q", outcome.Action)
	}
	if len(f.profiles.autoShareCalls) != 1 || !f.profiles.autoShareCalls[0] {
		t.Errorf("expected auto-share true persisted, got %v", f.profiles.autoShareCalls)
	}
	if len(f.notifier.calls) != 1 {
		t.Fatalf("expected one fan-out, got %d", len(f.notifier.calls))
	}
	if len(f.notifier.calls[0].contacts) != 2 {
		t.Errorf("expected both contacts, got %d", len(f.notifier.calls[0].contacts))
	}
	if outcome.Notify == nil || outcome.Notify.SuccessCount != 2 {
		t.Errorf("expected notify result attached, got %+v", outcome.Notify)
	}
}

func TestShareLocation_DenyPersistsAndFallsBackToShareSheet(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerDeny)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionShareSheet {
		t.Errorf("expected share_sheet, got %q", outcome.Action)
	}
	if len(f.profiles.autoShareCalls) != 1 || f.profiles.autoShareCalls[0] {
		t.Errorf("expected auto-share false persisted, got %v", f.profiles.autoShareCalls)
	}
	if len(f.notifier.calls) != 0 {
		t.Error("deny must not fan out to contacts")
	}
}

func TestShareLocation_StoredPreferenceSkipsPrompt(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, boolptr(true))
	f.notifier.result = notify.Result{SuccessCount: 2}
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerNone)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionNotified {
		t.Errorf("expected notified without prompting, got %q", outcome.Action)
	}
	if len(f.profiles.autoShareCalls) != 0 {
		t.Error("stored preference must not be rewritten")
	}
}

func TestShareLocation_FallbackWhenNoContactReached(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, boolptr(true))
	f.notifier.result = notify.Result{SuccessCount: 0}
	rec := f.reportEmergency(t, "u1")

	outcome, err := f.svc.ShareLocation(context.Background(), rec.ID, "u1", AnswerNone)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if outcome.Action != ActionShareSheet {
		t.Errorf("expected share_sheet fallback, got %q", outcome.Action)
	}
	if len(f.notifier.calls) != 1 {
		t.Errorf("expected the fan-out to be attempted once, got %d", len(f.notifier.calls))
	}
	if len(f.opener.Shares()) != 1 {
		t.Errorf("expected exactly one share sheet fallback, got %d", len(f.opener.Shares()))
	}
	if outcome.Notify == nil || outcome.Notify.Total != 2 {
		t.Errorf("expected failed fan-out result attached, got %+v", outcome.Notify)
	}
}

func TestShareLocation_RejectsNonReporter(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	rec := f.reportEmergency(t, "u1")

	if _, err := f.svc.ShareLocation(context.Background(), rec.ID, "intruder", AnswerAllow); err != ErrNotReporter {
		t.Fatalf("expected ErrNotReporter, got %v", err)
	}
	if len(f.profiles.autoShareCalls) != 0 {
		t.Errorf("a stranger's answer must not persist the reporter's preference, got %v", f.profiles.autoShareCalls)
	}
	if len(f.notifier.calls) != 0 {
		t.Errorf("a stranger must not trigger the contact fan-out, got %d calls", len(f.notifier.calls))
	}
	if len(f.opener.Shares()) != 0 {
		t.Errorf("a stranger must not open the share sheet, got %d", len(f.opener.Shares()))
	}
}

func TestShareLocation_Missing(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.ShareLocation(context.Background(), uuid.New(), "u1", AnswerNone); err != ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

// -- MedicalInfoMessage --

func TestMedicalInfoMessage_ReporterAndResponderOnly(t *testing.T) {
	f := newFixture()
	f.withProfile("u1", testContacts, nil)
	rec := f.reportEmergency(t, "u1")

	if _, err := f.svc.MedicalInfoMessage(context.Background(), rec.ID, "u1", false); err != nil {
		t.Errorf("reporter must be allowed: %v", err)
	}
	if _, err := f.svc.MedicalInfoMessage(context.Background(), rec.ID, "medic-7", true); err != nil {
		t.Errorf("approved responder must be allowed: %v", err)
	}
	if _, err := f.svc.MedicalInfoMessage(context.Background(), rec.ID, "intruder", false); err != ErrNotReporter {
		t.Errorf("expected ErrNotReporter for a stranger, got %v", err)
	}
}

// -- Prompt answer parsing --

func TestParsePromptAnswer(t *testing.T) {
	cases := map[string]PromptAnswer{
		"":       AnswerNone,
		"cancel": AnswerCancel,
		"deny":   AnswerDeny,
		"allow":  AnswerAllow,
	}
	for in, want := range cases {
		got, err := ParsePromptAnswer(in)
		if err != nil || got != want {
			t.Errorf("ParsePromptAnswer(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePromptAnswer("maybe"); err == nil {
		t.Error("expected error for unknown answer")
	}
}
