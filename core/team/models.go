package team

import "github.com/mkaralis/labreg/core"

// MaxTeamNumber is the team-number ceiling per section.
const MaxTeamNumber = 9

const (
	MinTeamSize = 2
	MaxTeamSize = 3
)

// Membership is one student's team row; a student belongs to at most one
// team per section.
type Membership struct {
	ID         string `json:"id"`
	TeamNumber int    `json:"team_number"`
	StudentID  string `json:"student_id"`
	SectionID  int    `json:"section_id"`
}

// TeamMember is a listing row, ordered by (team number, student name).
type TeamMember struct {
	TeamNumber int    `json:"team_number"`
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
}

// NewAssignment contains information needed to place students on a team.
type NewAssignment struct {
	SectionID  int      `json:"section_id" validate:"required"`
	TeamNumber int      `json:"team_number" validate:"required,min=1,max=9"`
	StudentIDs []string `json:"student_ids" validate:"required,dive,required"`
	// Overwrite confirms replacing the students' existing memberships and
	// claiming a team number already in use.
	Overwrite bool `json:"overwrite"`
}

func (na *NewAssignment) Validate() error {
	for i, id := range na.StudentIDs {
		na.StudentIDs[i] = core.CleanString(id)
	}
	return core.Validate.Struct(na)
}
