package model

import "time"

// Review is embedded in ServiceProvider.Reviews and has no identity of its own.
type Review struct {
	ClientID  uint64    `json:"client_id"`
	Rating    uint8     `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type AddReviewRequest struct {
	Rating  uint8  `json:"rating"`
	Comment string `json:"comment"`
}
