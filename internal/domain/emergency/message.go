package emergency

import (
	"fmt"
	"strings"
	"time"

	"github.com/resqnow/resqnow/internal/domain/profile"
)

const messageTimeLayout = "02/01/2006, 15:04:05"

// BuildLocationMessage renders the SMS body sent to emergency contacts when a
// location is shared.
func BuildLocationMessage(loc Location, at time.Time) string {
	address := "Address not available"
	if loc.Address != nil && *loc.Address != "" {
		address = *loc.Address
	}

	var b strings.Builder
	b.WriteString("🚨 EMERGENCY LOCATION 🚨\n\n")
	b.WriteString("📍 Location:\n")
	b.WriteString(address + "\n\n")
	b.WriteString("Coordinates:\n")
	fmt.Fprintf(&b, "%.6f, %.6f\n\n", loc.Latitude, loc.Longitude)
	b.WriteString("🗺️ Open in Maps:\n")
	fmt.Fprintf(&b, "https://www.google.com/maps?q=%v,%v\n\n", loc.Latitude, loc.Longitude)
	b.WriteString("Time: " + at.Format(messageTimeLayout) + "\n\n")
	b.WriteString("---\n")
	b.WriteString("Shared from ResQNow Emergency App")
	return b.String()
}

// BuildMedicalInfoMessage renders the shareable medical summary for a
// profile. Unset fields are skipped rather than rendered empty. rec may be
// nil when no emergency location is known.
func BuildMedicalInfoMessage(p *profile.Profile, rec *Record) string {
	var b strings.Builder
	b.WriteString("⛑ ResQNow Medical Information - EMERGENCY\n\n")

	if rec != nil {
		if rec.Location.Address != nil && *rec.Location.Address != "" {
			fmt.Fprintf(&b, "📍 Location: %s\n\n", *rec.Location.Address)
		} else {
			fmt.Fprintf(&b, "📍 Location: %.6f, %.6f\n\n", rec.Location.Latitude, rec.Location.Longitude)
		}
	}

	b.WriteString("👤 Personal Information:\n")
	if p.FullName != nil && *p.FullName != "" {
		fmt.Fprintf(&b, "Name: %s\n", *p.FullName)
	}
	if p.NationalID != nil && *p.NationalID != "" {
		fmt.Fprintf(&b, "ID: %s\n", *p.NationalID)
	}
	if p.Email != nil && *p.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", *p.Email)
	}
	if p.Age != nil {
		fmt.Fprintf(&b, "Age: %d\n", *p.Age)
	}
	if p.BloodType != nil && *p.BloodType != "" {
		fmt.Fprintf(&b, "Blood Type: %s\n", *p.BloodType)
	}
	if p.WeightKg != nil {
		fmt.Fprintf(&b, "Weight: %v kg\n", *p.WeightKg)
	}
	if p.HeightCm != nil {
		fmt.Fprintf(&b, "Height: %v cm\n", *p.HeightCm)
	}

	b.WriteString("\n🏥 Medical History:\n")
	if p.MedicalConditions != nil && *p.MedicalConditions != "" {
		fmt.Fprintf(&b, "Conditions: %s\n", *p.MedicalConditions)
	}
	if p.Medications != nil && *p.Medications != "" {
		fmt.Fprintf(&b, "Medications: %s\n", *p.Medications)
	}
	if p.Allergies != nil && *p.Allergies != "" {
		fmt.Fprintf(&b, "Allergies: %s\n", *p.Allergies)
	}
	if p.SensitiveNotes != nil && *p.SensitiveNotes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", *p.SensitiveNotes)
	}

	b.WriteString("\n📞 Emergency Contacts:\n")
	if len(p.EmergencyContacts) == 0 {
		b.WriteString("No emergency contacts\n")
	} else {
		for _, c := range p.EmergencyContacts {
			if c.Relationship != "" {
				fmt.Fprintf(&b, "%s (%s): %s\n", c.Name, c.Relationship, c.Phone)
			} else {
				fmt.Fprintf(&b, "%s: %s\n", c.Name, c.Phone)
			}
		}
	}

	b.WriteString("\n---\n")
	b.WriteString("Shared from ResQNow App - Emergency Situation")
	return b.String()
}
