package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCanceled  BookingStatus = "Canceled"
	BookingStatusCompleted BookingStatus = "Completed"
)

func (s BookingStatus) String() string {
	return string(s)
}

type Booking struct {
	ID                uint64        `json:"id"`
	ServiceProviderID uint64        `json:"service_provider_id"`
	ClientID          uint64        `json:"client_id"`
	ServiceDate       uint64        `json:"service_date"`
	ServiceType       string        `json:"service_type"`
	Status            BookingStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

type CreateBookingRequest struct {
	ServiceProviderID uint64 `json:"service_provider_id"`
	ClientID          uint64 `json:"client_id"`
	ServiceDate       uint64 `json:"service_date"`
	ServiceType       string `json:"service_type"`
}

type RescheduleBookingRequest struct {
	NewDate uint64 `json:"new_date"`
}
