package model

import (
	"slices"
	"time"
)

// ServiceProvider is a listing clients can book against.
type ServiceProvider struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	ServiceType   string    `json:"service_type"`
	ContactInfo   string    `json:"contact_info"`
	CreatedAt     time.Time `json:"created_at"`
	AverageRating float64   `json:"average_rating"`
	Reviews       []Review  `json:"reviews"`
	Availability  []uint64  `json:"availability"`
}

// IsAvailable reports whether date is one of the provider's bookable dates.
func (p *ServiceProvider) IsAvailable(date uint64) bool {
	return slices.Contains(p.Availability, date)
}

// AddReview appends r and recomputes AverageRating over every review.
func (p *ServiceProvider) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
	p.AverageRating = AverageRating(p.Reviews)
}

// AverageRating returns the mean rating, or 0 when there are no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var total uint64
	for _, r := range reviews {
		total += uint64(r.Rating)
	}
	return float64(total) / float64(len(reviews))
}

type CreateServiceProviderRequest struct {
	Name         string   `json:"name"`
	ServiceType  string   `json:"service_type"`
	ContactInfo  string   `json:"contact_info"`
	Availability []uint64 `json:"availability"`
}

type SearchServiceProvidersRequest struct {
	Query  string  `form:"query"`
	Filter *string `form:"filter"`
}
