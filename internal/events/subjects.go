package events

const (
	SubjectSweepCompleted = "sourcing.sweep.completed"

	StreamName   = "SOURCING_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectAssignmentOffered(assignmentID string) string {
	return "sourcing.assignment." + assignmentID + ".offered"
}
func SubjectAssignmentClaimed(assignmentID string) string {
	return "sourcing.assignment." + assignmentID + ".claimed"
}
func SubjectAssignmentExpired(assignmentID string) string {
	return "sourcing.assignment." + assignmentID + ".expired"
}
func SubjectOfferReconfirmed(offerID string) string {
	return "sourcing.offer." + offerID + ".reconfirmed"
}
