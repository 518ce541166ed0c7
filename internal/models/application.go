package models

import "time"

type HostApplication struct {
	ID           string                `json:"id"`
	UserID       string                `json:"userId"`
	HostName     string                `json:"hostName"`
	Status       string                `json:"status"` // Pending, Changes Needed, Rejected, Approved
	Profile      ApplicationProfile    `json:"profile"`
	Experience   ApplicationExperience `json:"experience"`
	Location     Location              `json:"location"`
	HomeSetup    HomeSetup             `json:"homeSetup"`
	Compliance   Compliance            `json:"compliance"`
	Verification Verification          `json:"verification"`
	ExperienceID string                `json:"experienceId,omitempty"`
	ReviewedBy   string                `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time            `json:"reviewedAt,omitempty"`
	SubmittedAt  time.Time             `json:"submittedAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type ApplicationProfile struct {
	DisplayName        string   `json:"displayName"`
	Bio                string   `json:"bio"`
	Languages          []string `json:"languages,omitempty"`
	CulturalBackground string   `json:"culturalBackground,omitempty"`
	PhotoURL           string   `json:"photoUrl,omitempty"`
	Phone              string   `json:"phone,omitempty"`
}

type ApplicationExperience struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Cuisine         string   `json:"cuisine"`
	DurationMinutes int      `json:"durationMinutes"`
	PricePerGuest   int64    `json:"pricePerGuest"`
	MaxGuests       int      `json:"maxGuests"`
	Menu            []string `json:"menu,omitempty"`
	DietaryOptions  []string `json:"dietaryOptions,omitempty"`
	Images          []string `json:"images,omitempty"`
}

type Location struct {
	Address    string  `json:"address,omitempty"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postalCode,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
	Lng        float64 `json:"lng,omitempty"`
}

type HomeSetup struct {
	SpaceType     string   `json:"spaceType"`
	MaxGuests     int      `json:"maxGuests"`
	Amenities     []string `json:"amenities,omitempty"`
	Accessibility string   `json:"accessibility,omitempty"`
	HasPets       bool     `json:"hasPets"`
}

type Compliance struct {
	FoodSafetyCertified bool   `json:"foodSafetyCertified"`
	HasInsurance        bool   `json:"hasInsurance"`
	AgreedToTerms       bool   `json:"agreedToTerms"`
	AlcoholLicense      string `json:"alcoholLicense,omitempty"`
}

type Verification struct {
	IDDocumentURL string `json:"idDocumentUrl,omitempty"`
	SelfieURL     string `json:"selfieUrl,omitempty"`
	Status        string `json:"status,omitempty"`
}

// IsTerminal reports whether the application can no longer be reviewed.
func (a *HostApplication) IsTerminal() bool {
	return a.Status == ApplicationApproved || a.Status == ApplicationRejected
}

var applicationTransitions = map[string][]string{
	ApplicationPending:       {ApplicationApproved, ApplicationRejected, ApplicationChangesNeeded},
	ApplicationChangesNeeded: {ApplicationApproved, ApplicationRejected},
}

// CanTransitionApplication reports whether from -> to is an edge of the review graph.
func CanTransitionApplication(from, to string) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Host struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	Name               string     `json:"name"`
	Bio                string     `json:"bio"`
	Languages          []string   `json:"languages,omitempty"`
	CulturalBackground string     `json:"culturalBackground,omitempty"`
	PhotoURL           string     `json:"photoUrl,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Location           Location   `json:"location"`
	HomeSetup          HomeSetup  `json:"homeSetup"`
	Compliance         Compliance `json:"compliance"`
	IsVerified         bool       `json:"isVerified"`
	VerificationStatus string     `json:"verificationStatus"`
	ApplicationID      string     `json:"applicationId"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type Experience struct {
	ID              string       `json:"id"`
	HostID          string       `json:"hostId"`
	HostName        string       `json:"hostName"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Cuisine         string       `json:"cuisine"`
	DurationMinutes int          `json:"durationMinutes"`
	PricePerGuest   int64        `json:"pricePerGuest"`
	MaxGuests       int          `json:"maxGuests"`
	Menu            []string     `json:"menu,omitempty"`
	DietaryOptions  []string     `json:"dietaryOptions,omitempty"`
	Images          []string     `json:"images,omitempty"`
	City            string       `json:"city"`
	Country         string       `json:"country"`
	Availability    Availability `json:"availability"`
	BlockedDates    []string     `json:"blockedDates,omitempty"` // YYYY-MM-DD
	InstantBook     bool         `json:"instantBook"`
	IsActive        bool         `json:"isActive"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// Availability is the weekly pattern an experience runs on.
type Availability struct {
	Days      []string `json:"days"`      // Mon..Sun
	TimeSlots []string `json:"timeSlots"` // HH:MM
}
