package activity

import "time"

// Event types
const (
	EventParticipantJoined = "activity.participant.joined"
)

// ParticipantJoined is published once a student signed up for an activity.
type ParticipantJoined struct {
	Activity string    `json:"activity"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}
