package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a reservation of a Field for a date and time window.
// BookingDate is YYYY-MM-DD, StartTime and EndTime are HH:MM in the venue's zone.
type Booking struct {
	ID          int64         `json:"id"`
	FieldID     int64         `json:"fieldId"`
	UserID      int64         `json:"userId"`
	BookingDate string        `json:"bookingDate"`
	StartTime   string        `json:"startTime"`
	EndTime     string        `json:"endTime"`
	Status      BookingStatus `json:"status"`
	Payment     *Payment      `json:"payment,omitempty"`
	Field       *Field        `json:"field,omitempty"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

// BookingRequest is what a caller proposes; the service validates it before anything is sent.
type BookingRequest struct {
	FieldID     int64  `json:"fieldId"`
	BookingDate string `json:"bookingDate"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// TimeSlot is one open window returned by the availability query.
type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// PageMeta is the pagination block some list endpoints send next to their data.
type PageMeta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalItems  int  `json:"totalItems"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}
