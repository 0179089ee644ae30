// Package intents models the OS-level communication intents the mobile client
// opens on the user's behalf: SMS compose, the native share sheet, the phone
// dialer, and maps navigation. The server cannot observe what the user does
// inside the native UI; an intent either opened, was unsupported by the
// platform, or failed outright.
package intents

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Result is the outcome of attempting to open an intent. A bare boolean
// cannot distinguish "the platform has no SMS app" from "the OS errored",
// and callers decide fallback behavior differently for each.
type Result int

const (
	// Opened means the compose/share/dial UI was presented to the user.
	Opened Result = iota
	// NotSupported means the platform cannot handle the URI scheme.
	NotSupported
	// Failed means the platform accepted the URI but errored opening it.
	Failed
)

func (r Result) String() string {
	switch r {
	case Opened:
		return "opened"
	case NotSupported:
		return "not_supported"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Opener abstracts the device-side intent bridge. Open delivers a URI-based
// intent (sms:, tel:, https: maps links); ShareSheet opens the native share
// dialog with free text. Both are fire-and-forget.
type Opener interface {
	Open(ctx context.Context, uri string) Result
	ShareSheet(ctx context.Context, text, title string) Result
}

// SMSCompose builds the standard cross-platform SMS compose URI with a
// pre-filled body.
func SMSCompose(phone, body string) string {
	return "sms:" + phone + "?body=" + url.QueryEscape(body)
}

// SMSComposeAlt builds the alternate SMS compose encoding that some iOS
// versions require when the primary form is rejected.
func SMSComposeAlt(phone, body string) string {
	return "sms:" + phone + "&body=" + url.QueryEscape(body)
}

// Dialer builds a phone dialer URI.
func Dialer(phone string) string {
	return "tel:" + phone
}

// MapsQuery builds a Google Maps link pinning the given coordinates. This is
// the link embedded in shared location messages.
func MapsQuery(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", lat, lon)
}

// MapsNavigation builds a Google Maps turn-by-turn navigation link to the
// given coordinates.
func MapsNavigation(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%v,%v", lat, lon)
}

// LogOpener is the server-side Opener: the actual open happens on the device
// once the client receives the intent, so the server records the handoff and
// reports it as opened.
type LogOpener struct {
	logger zerolog.Logger
}

func NewLogOpener(logger zerolog.Logger) *LogOpener {
	return &LogOpener{logger: logger}
}

func (o *LogOpener) Open(_ context.Context, uri string) Result {
	o.logger.Debug().Str("uri", redactBody(uri)).Msg("intent handed to client")
	return Opened
}

func (o *LogOpener) ShareSheet(_ context.Context, _ string, title string) Result {
	o.logger.Debug().Str("title", title).Msg("share sheet handed to client")
	return Opened
}

// redactBody drops the pre-filled body from an SMS URI so message contents
// stay out of the logs.
func redactBody(uri string) string {
	if i := strings.Index(uri, "body="); i >= 0 {
		return uri[:i] + "body=<redacted>"
	}
	return uri
}

// ---------------------------------------------------------------------------
// Mock opener (test double)
// ---------------------------------------------------------------------------

// OpenCall records a single Open invocation.
type OpenCall struct {
	URI string
}

// ShareCall records a single ShareSheet invocation.
type ShareCall struct {
	Text  string
	Title string
}

// MockOpener is a scriptable test double for Opener. Results maps exact URIs
// to outcomes; unscripted URIs return Default.
type MockOpener struct {
	mu          sync.Mutex
	opens       []OpenCall
	shares      []ShareCall
	Results     map[string]Result
	Default     Result
	ShareResult Result
}

// Open records the call and returns the scripted result.
func (m *MockOpener) Open(_ context.Context, uri string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens = append(m.opens, OpenCall{URI: uri})
	if r, ok := m.Results[uri]; ok {
		return r
	}
	return m.Default
}

// ShareSheet records the call and returns the scripted share result.
func (m *MockOpener) ShareSheet(_ context.Context, text, title string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares = append(m.shares, ShareCall{Text: text, Title: title})
	return m.ShareResult
}

// Opens returns a copy of recorded Open calls, in order.
func (m *MockOpener) Opens() []OpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OpenCall, len(m.opens))
	copy(out, m.opens)
	return out
}

// Shares returns a copy of recorded ShareSheet calls, in order.
func (m *MockOpener) Shares() []ShareCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ShareCall, len(m.shares))
	copy(out, m.shares)
	return out
}
