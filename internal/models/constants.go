package models

// Booking statuses.
const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCancelled = "Cancelled"
)

// Reschedule request statuses.
const (
	ReschedulePending  = "pending"
	RescheduleAccepted = "accepted"
	RescheduleDeclined = "declined"
)

// Host application statuses.
const (
	ApplicationPending       = "Pending"
	ApplicationChangesNeeded = "Changes Needed"
	ApplicationRejected      = "Rejected"
	ApplicationApproved      = "Approved"
)

// Account roles. RoleAdmin is only ever carried by an Actor, never stored on a User.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleBoth  = "both"
	RoleAdmin = "admin"
)

// Coupon discount types.
const (
	DiscountFixed      = "fixed"
	DiscountPercentage = "percentage"
)

// Ledger collections.
const (
	CollectionBookings      = "bookings"
	CollectionCoupons       = "coupons"
	CollectionApplications  = "hostApplications"
	CollectionHosts         = "hosts"
	CollectionExperiences   = "experiences"
	CollectionUsers         = "users"
	CollectionConversations = "conversations"
	CollectionNotifications = "notifications"
)

// Notification types.
const (
	NotifyBookingRequested    = "booking_requested"
	NotifyBookingConfirmed    = "booking_confirmed"
	NotifyBookingCancelled    = "booking_cancelled"
	NotifyRescheduleRequested = "reschedule_requested"
	NotifyRescheduleAccepted  = "reschedule_accepted"
	NotifyRescheduleDeclined  = "reschedule_declined"
	NotifyApplicationApproved = "application_approved"
	NotifyApplicationRejected = "application_rejected"
	NotifyApplicationChanges  = "application_changes_requested"
)

const (
	// DefaultMaxAdvanceDays limits how far ahead a booking date may be.
	DefaultMaxAdvanceDays = 365

	// DefaultExperienceTimeSlot is assigned to experiences created by approval.
	DefaultExperienceTimeSlot = "19:00"

	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
)

// DefaultExperienceDays are the weekdays an approved experience opens on until the host edits them.
var DefaultExperienceDays = []string{"Wed", "Fri", "Sat"}
