package model

import "time"

// DateLayout is how signing dates are shown next to a participant.
const DateLayout = "2006-01-02 15:04"

type ParticipantStatus string

const (
	ParticipantSigned  ParticipantStatus = "signed"
	ParticipantWaiting ParticipantStatus = "waiting"
)

// Participant is a rendering view over an ApprovalStep.
type Participant struct {
	Name     string
	Address  string
	Status   ParticipantStatus
	SignedAt *time.Time
	Date     string
}

// Employee is an entry of the employee registry, the pool approvers are picked from.
type Employee struct {
	Address string
	Name    string
}
