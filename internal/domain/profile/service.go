package profile

import (
	"context"
	"fmt"
	"math"
)

// bloodCompatibility: donor type -> recipients it can donate to, and donor
// types it can receive from.
var bloodCompatibility = map[string]BloodCompatibility{
	"O-":  {DonateTo: []string{"O-", "O+", "A-", "A+", "B-", "B+", "AB-", "AB+"}, ReceiveFrom: []string{"O-"}},
	"O+":  {DonateTo: []string{"O+", "A+", "B+", "AB+"}, ReceiveFrom: []string{"O-", "O+"}},
	"A-":  {DonateTo: []string{"A-", "A+", "AB-", "AB+"}, ReceiveFrom: []string{"O-", "A-"}},
	"A+":  {DonateTo: []string{"A+", "AB+"}, ReceiveFrom: []string{"O-", "O+", "A-", "A+"}},
	"B-":  {DonateTo: []string{"B-", "B+", "AB-", "AB+"}, ReceiveFrom: []string{"O-", "B-"}},
	"B+":  {DonateTo: []string{"B+", "AB+"}, ReceiveFrom: []string{"O-", "O+", "B-", "B+"}},
	"AB-": {DonateTo: []string{"AB-", "AB+"}, ReceiveFrom: []string{"O-", "A-", "B-", "AB-"}},
	"AB+": {DonateTo: []string{"AB+"}, ReceiveFrom: []string{"O-", "O+", "A-", "A+", "B-", "B+", "AB-", "AB+"}},
}

const (
	normalBloodPressure = "90/60 - 120/80 mmHg"
	normalHeartRate     = "60 - 100 bpm"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Save merge-writes the caller's profile. Fields left nil in p keep their
// stored values.
func (s *Service) Save(ctx context.Context, p *Profile) error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return fmt.Errorf("age must be between 0 and 150")
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		return fmt.Errorf("weight_kg must be positive")
	}
	if p.HeightCm != nil && *p.HeightCm <= 0 {
		return fmt.Errorf("height_cm must be positive")
	}
	if p.BloodType != nil {
		if _, ok := bloodCompatibility[*p.BloodType]; !ok {
			return fmt.Errorf("unknown blood type %q", *p.BloodType)
		}
	}
	for _, contact := range p.EmergencyContacts {
		if contact.Name == "" {
			return fmt.Errorf("contact name is required")
		}
		if contact.Phone == "" {
			return fmt.Errorf("contact phone is required")
		}
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// SetAutoShare persists the owner's answer to the location-sharing prompt.
func (s *Service) SetAutoShare(ctx context.Context, userID string, enabled bool) error {
	return s.repo.SetAutoShare(ctx, userID, enabled)
}

// SetApproval toggles an account's responder approval (admin operation).
func (s *Service) SetApproval(ctx context.Context, userID string, approved bool) error {
	return s.repo.SetApproval(ctx, userID, approved)
}

// SetRole changes an account's role (admin operation).
func (s *Service) SetRole(ctx context.Context, userID string, role string) error {
	if role == "" {
		return fmt.Errorf("role is required")
	}
	return s.repo.SetRole(ctx, userID, role)
}

// Derived computes reference vitals from the stored measurements. BMI needs
// weight and height; maintenance calories additionally need age.
func Derived(p *Profile) DerivedVitals {
	v := DerivedVitals{
		NormalBloodPressure: normalBloodPressure,
		NormalHeartRate:     normalHeartRate,
	}
	if p.WeightKg != nil && p.HeightCm != nil {
		hm := *p.HeightCm / 100
		bmi := round1(*p.WeightKg / (hm * hm))
		v.BMI = &bmi
	}
	if p.WeightKg != nil && p.HeightCm != nil && p.Age != nil {
		cal := math.Round(10**p.WeightKg + 6.25**p.HeightCm - 5*float64(*p.Age) + 5)
		v.MaintenanceCalories = &cal
	}
	return v
}

// Compatibility returns the donate/receive lists for the profile's blood
// type, or false when the type is unset or unknown.
func Compatibility(p *Profile) (BloodCompatibility, bool) {
	if p.BloodType == nil {
		return BloodCompatibility{}, false
	}
	c, ok := bloodCompatibility[*p.BloodType]
	return c, ok
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
