package model

import "time"

// Rating is the one-shot feedback attached to a resolved call.  Feedback
// is kept only for ratings below the restaurant's redirect threshold.
type Rating struct {
	ID               uint64    `json:"id"`
	CallID           uint64    `json:"call_id"`
	Stars            int       `json:"stars"`
	Feedback         *string   `json:"feedback,omitempty"`
	RedirectedGoogle bool      `json:"redirected_google"`
	CreatedAt        time.Time `json:"created_at"`
}
