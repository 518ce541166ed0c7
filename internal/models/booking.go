package models

import "time"

type Booking struct {
	ID                string             `json:"id"`
	GuestID           string             `json:"guestId"`
	ExperienceID      string             `json:"experienceId"`
	HostID            string             `json:"hostId"`
	ExperienceTitle   string             `json:"experienceTitle"`
	HostName          string             `json:"hostName"`
	BookingDate       time.Time          `json:"bookingDate"`
	NumberOfGuests    int                `json:"numberOfGuests"`
	BasePrice         int64              `json:"basePrice"`
	TotalPrice        int64              `json:"totalPrice"`
	DiscountAmount    int64              `json:"discountAmount,omitempty"`
	CouponID          string             `json:"couponId,omitempty"`
	Status            string             `json:"status"` // Pending, Confirmed, Cancelled
	IsGift            bool               `json:"isGift"`
	RescheduleRequest *RescheduleRequest `json:"rescheduleRequest,omitempty"`
	CancelledBy       string             `json:"cancelledBy,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type RescheduleRequest struct {
	NewDate     time.Time  `json:"newDate"`
	Status      string     `json:"status"` // pending, accepted, declined
	RequestedBy string     `json:"requestedBy"`
	RequestedAt time.Time  `json:"requestedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// IsParty reports whether userID is the guest or the host of the booking.
func (b Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.GuestID || userID == b.HostID)
}

// Counterparty returns the other side of the booking for userID.
func (b Booking) Counterparty(userID string) string {
	if userID == b.HostID {
		return b.GuestID
	}
	return b.HostID
}

// HasPendingReschedule reports whether a reschedule is awaiting the host.
func (b Booking) HasPendingReschedule() bool {
	return b.RescheduleRequest != nil && b.RescheduleRequest.Status == ReschedulePending
}

var bookingTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

// CanTransitionBooking reports whether from -> to is an edge of the booking status graph.
func CanTransitionBooking(from, to string) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Conversation is the messaging shell created when a host confirms a booking.
type Conversation struct {
	ID              string    `json:"id"`
	BookingID       string    `json:"bookingId"`
	ExperienceID    string    `json:"experienceId"`
	ExperienceTitle string    `json:"experienceTitle"`
	Participants    []string  `json:"participants"`
	CreatedAt       time.Time `json:"createdAt"`
}
