package events

import "time"

// AssignmentOfferedEvent is published once per ranked slot when an
// assignment is created. The notifier turns these into buyer pings.
type AssignmentOfferedEvent struct {
	AssignmentID string    `json:"assignment_id"`
	BuyerID      string    `json:"buyer_id"`
	Rank         int       `json:"rank"`
	Score        float64   `json:"score"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AssignmentClaimedEvent struct {
	AssignmentID string    `json:"assignment_id"`
	BuyerID      string    `json:"buyer_id"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

type OfferReconfirmedEvent struct {
	OfferID        string    `json:"offer_id"`
	ReconfirmCount int       `json:"reconfirm_count"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type SweepCompletedEvent struct {
	AssignmentsExpired int       `json:"assignments_expired"`
	OffersExpired      int       `json:"offers_expired"`
	SweptAt            time.Time `json:"swept_at"`
}
