package profile

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyContact is a person notified when the profile owner reports an
// emergency. Contacts keep their insertion order and are never deduplicated.
type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship,omitempty"`
}

// Profile maps to the profiles table. Medical fields are pointers so a
// partial update can leave them untouched (merge-write semantics).
type Profile struct {
	ID     uuid.UUID `db:"id" json:"id"`
	UserID string    `db:"user_id" json:"user_id"`

	FullName   *string `db:"full_name" json:"full_name,omitempty"`
	Phone      *string `db:"phone" json:"phone,omitempty"`
	Email      *string `db:"email" json:"email,omitempty"`
	NationalID *string `db:"national_id" json:"national_id,omitempty"`
	Age        *int    `db:"age" json:"age,omitempty"`
	Gender     *string `db:"gender" json:"gender,omitempty"`

	BloodType         *string  `db:"blood_type" json:"blood_type,omitempty"`
	WeightKg          *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm          *float64 `db:"height_cm" json:"height_cm,omitempty"`
	Allergies         *string  `db:"allergies" json:"allergies,omitempty"`
	Medications       *string  `db:"medications" json:"medications,omitempty"`
	MedicalConditions *string  `db:"medical_conditions" json:"medical_conditions,omitempty"`
	SensitiveNotes    *string  `db:"sensitive_notes" json:"sensitive_notes,omitempty"`

	EmergencyContacts []EmergencyContact `db:"emergency_contacts" json:"emergency_contacts,omitempty"`

	// AutoShareLocationToContacts is tri-state: nil means the owner was never
	// asked, so the dispatcher prompts before fanning out.
	AutoShareLocationToContacts *bool `db:"auto_share_location" json:"auto_share_location_to_contacts,omitempty"`

	Role     string `db:"role" json:"role"`
	Approved bool   `db:"approved" json:"approved"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DerivedVitals are reference values computed from the stored measurements,
// never persisted.
type DerivedVitals struct {
	BMI                 *float64 `json:"bmi,omitempty"`
	MaintenanceCalories *float64 `json:"maintenance_calories,omitempty"`
	NormalBloodPressure string   `json:"normal_blood_pressure"`
	NormalHeartRate     string   `json:"normal_heart_rate"`
}

// BloodCompatibility lists which blood types this profile can donate to and
// receive from.
type BloodCompatibility struct {
	DonateTo    []string `json:"donate_to"`
	ReceiveFrom []string `json:"receive_from"`
}
