package routing

import (
	"errors"
	"fmt"
	"time"
)

// The claim/reconfirm protocol has five expected outcomes besides
// success. None of them indicate a fault; handlers render them straight
// back to the caller.
var (
	ErrNotFound  = errors.New("not found")
	ErrExpired   = errors.New("assignment expired")
	ErrConverted = errors.New("offer already converted")
)

// AlreadyClaimedError names the buyer that won the assignment.
type AlreadyClaimedError struct {
	ClaimedBy string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("assignment already claimed by %s", e.ClaimedBy)
}

// NotEligibleError reports a claim attempt during the exclusive waterfall
// phase by a buyer outside the ranked slots.
type NotEligibleError struct {
	BuyerID string
	OpensAt time.Time
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("buyer %s is not in the ranked slots; claiming opens to all buyers at %s",
		e.BuyerID, e.OpensAt.Format(time.RFC3339))
}
