package emergency

import (
	"strings"
	"testing"
	"time"

	"github.com/resqnow/resqnow/internal/domain/profile"
)

func strptr(s string) *string   { return &s }
func intptr(i int) *int         { return &i }
func f64ptr(f float64) *float64 { return &f }

func TestBuildLocationMessage_WithAddress(t *testing.T) {
	loc := Location{
		Latitude:  32.0853,
		Longitude: 34.7818,
		Address:   strptr("Dizengoff St 50, Tel Aviv"),
	}
	at := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	msg := BuildLocationMessage(loc, at)

	for _, want := range []string{
		"🚨 EMERGENCY LOCATION 🚨",
		"Dizengoff St 50, Tel Aviv",
		"32.085300, 34.781800",
		"https://www.google.com/maps?q=32.0853,34.7818",
		"Time: 01/06/2025, 14:30:00",
		"Shared from ResQNow Emergency App",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildLocationMessage_NoAddress(t *testing.T) {
	msg := BuildLocationMessage(Location{Latitude: 1, Longitude: 2}, time.Now())
	if !strings.Contains(msg, "Address not available") {
		t.Errorf("expected address placeholder:\n%s", msg)
	}
}

func TestBuildMedicalInfoMessage_FullProfile(t *testing.T) {
	p := &profile.Profile{
		FullName:          strptr("Dana Levy"),
		Email:             strptr("dana@example.com"),
		NationalID:        strptr("305123456"),
		Age:               intptr(34),
		BloodType:         strptr("O-"),
		WeightKg:          f64ptr(62),
		HeightCm:          f64ptr(168),
		MedicalConditions: strptr("Asthma"),
		Medications:       strptr("Ventolin"),
		Allergies:         strptr("Penicillin"),
		SensitiveNotes:    strptr("Carries an inhaler"),
		EmergencyContacts: []profile.EmergencyContact{
			{Name: "Noam", Phone: "050-222-2222", Relationship: "Brother"},
			{Name: "Dana", Phone: "050-333-3333"},
		},
	}
	rec := &Record{Location: Location{Latitude: 32.0853, Longitude: 34.7818, Address: strptr("Dizengoff St 50")}}
	msg := BuildMedicalInfoMessage(p, rec)

	for _, want := range []string{
		"⛑ ResQNow Medical Information - EMERGENCY",
		"📍 Location: Dizengoff St 50",
		"Name: Dana Levy",
		"ID: 305123456",
		"Email: dana@example.com",
		"Age: 34",
		"Blood Type: O-",
		"Weight: 62 kg",
		"Height: 168 cm",
		"Conditions: Asthma",
		"Medications: Ventolin",
		"Allergies: Penicillin",
		"Notes: Carries an inhaler",
		"Noam (Brother): 050-222-2222",
		"Dana: 050-333-3333",
		"Shared from ResQNow App - Emergency Situation",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildMedicalInfoMessage_SkipsUnsetFields(t *testing.T) {
	msg := BuildMedicalInfoMessage(&profile.Profile{FullName: strptr("Dana Levy")}, nil)

	if strings.Contains(msg, "Age:") || strings.Contains(msg, "Blood Type:") {
		t.Errorf("unset fields must be skipped:\n%s", msg)
	}
	if strings.Contains(msg, "ID:") || strings.Contains(msg, "Email:") || strings.Contains(msg, "Notes:") {
		t.Errorf("unset identity and notes fields must be skipped:\n%s", msg)
	}
	if strings.Contains(msg, "📍 Location:") {
		t.Errorf("no location line expected without a record:\n%s", msg)
	}
	if !strings.Contains(msg, "No emergency contacts") {
		t.Errorf("expected contacts placeholder:\n%s", msg)
	}
}

func TestBuildMedicalInfoMessage_CoordinatesWhenNoAddress(t *testing.T) {
	rec := &Record{Location: Location{Latitude: 32.0853, Longitude: 34.7818}}
	msg := BuildMedicalInfoMessage(&profile.Profile{}, rec)
	if !strings.Contains(msg, "📍 Location: 32.085300, 34.781800") {
		t.Errorf("expected coordinate fallback:\n%s", msg)
	}
}
