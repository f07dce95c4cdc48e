// Package catalog serves the academic-program catalog of the upstream
// institution API, cached so that an upstream outage does not stop the
// sales agent from answering.
package catalog

import (
	"errors"
	"time"
)

// ErrUpstreamUnavailable is returned when the catalog cannot be fetched and
// no earlier snapshot exists.
var ErrUpstreamUnavailable = errors.New("catalog upstream unavailable")

// ErrNotFound is returned when the upstream has no record for an id.
var ErrNotFound = errors.New("catalog record not found")

// Program is a catalog entry.
type Program struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type Area struct {
	Name     string    `json:"name"`
	Programs []Program `json:"programs"`
}

type Level struct {
	Name  string `json:"name"`
	Areas []Area `json:"areas"`
}

// Snapshot is a point-in-time copy of the catalog. Snapshots are never
// modified after creation.
type Snapshot struct {
	Levels    []Level   `json:"levels"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Programs flattens the snapshot hierarchy.
func (s *Snapshot) Programs() []Program {
	var out []Program
	for _, l := range s.Levels {
		for _, a := range l.Areas {
			out = append(out, a.Programs...)
		}
	}
	return out
}

// Program looks up a program by id.
func (s *Snapshot) Program(id int) (Program, bool) {
	for _, p := range s.Programs() {
		if p.ID == id {
			return p, true
		}
	}
	return Program{}, false
}

// Pricing holds the published fees for a program, in USD.
type Pricing struct {
	EnrollmentFee     float64 `json:"enrollment_fee"`
	Tuition           float64 `json:"tuition"`
	Installments      int     `json:"installments"`
	InstallmentAmount float64 `json:"installment_amount"`
	PlacementFee      float64 `json:"placement_fee,omitempty"`
}

type ProgramDetail struct {
	Program
	Sessions []string `json:"sessions"`
	Modes    []string `json:"modes"`
	Pricing  *Pricing `json:"pricing,omitempty"`
}

type Group struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
	Session   string `json:"session"`
	Mode      string `json:"mode"`
	Capacity  int    `json:"capacity,omitempty"`
}

type Subject struct {
	Name    string  `json:"name"`
	Hours   float64 `json:"hours"`
	Credits int     `json:"credits,omitempty"`
}

type CurriculumLevel struct {
	Name     string    `json:"name"`
	Subjects []Subject `json:"subjects"`
}

// Enrollment is a complete enrollment request.
type Enrollment struct {
	ProgramID int    `json:"program_id"`
	Program   string `json:"program"`
	Group     string `json:"group"`
	FullName  string `json:"full_name"`
	IDNumber  string `json:"id_number"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// EnrollmentReceipt is the upstream answer to a submitted enrollment.
type EnrollmentReceipt struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
}
