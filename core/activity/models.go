package activity

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Activity is an extracurricular offering, identified by its display Name.
// MaxParticipants is advertised to students but never enforced on signup.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"` // emails, in signup order
}

// HasParticipant reports whether `email` is in the activity's roster.
func (a Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// SpotsLeft may be negative since capacity is not enforced.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Clone returns a copy of `a` that does not share its participants slice.
func (a Activity) Clone() Activity {
	participants := make([]string, len(a.Participants))
	copy(participants, a.Participants)
	a.Participants = participants
	return a
}

// Catalog maps activity names to their details.
type Catalog map[string]Activity

func NewCatalog(activities []Activity) Catalog {
	c := make(Catalog, len(activities))
	for _, a := range activities {
		c[a.Name] = a
	}
	return c
}

// Signup contains information needed to register a student in an activity.
// Email is stored verbatim: `notblank` only rejects empty or whitespace-only values,
// it is not an address format check.
type Signup struct {
	Activity string `param:"name" validate:"required"`
	Email    string `query:"email" validate:"required,notblank"`
}

// Validate checks that both values were provided.
func (s Signup) Validate(validate *validator.Validate) error {
	return validate.Struct(s)
}

// Registration is the result of a successful Signup.
type Registration struct {
	Activity   string    `json:"activity"`
	Email      string    `json:"email"`
	SignedUpAt time.Time `json:"signed_up_at"` // UTC
}
