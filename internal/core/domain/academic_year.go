package domain

type AcademicYearStatus string

const (
	YearActive    AcademicYearStatus = "ACTIVE"
	YearCompleted AcademicYearStatus = "COMPLETED"
	YearInactive  AcademicYearStatus = "INACTIVE"
)

// Term is a bounded period (sequence/semester) inside an academic year.
type Term struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// AcademicYear is a period the institution operates under. The set of years
// offered for a role comes from the backend verbatim; it is never fabricated
// on this side.
type AcademicYear struct {
	ID        int                `json:"id"`
	Name      string             `json:"name"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	IsCurrent bool               `json:"isCurrent"`
	Status    AcademicYearStatus `json:"status"`
	Terms     []Term             `json:"terms,omitempty"`
}

// AcademicYearSet is the backend's answer for a single role.
type AcademicYearSet struct {
	Years           []AcademicYear `json:"academicYears"`
	CurrentYearID   *int           `json:"currentAcademicYearId"`
	UserHasAccessTo []int          `json:"userHasAccessTo"`
}

// FindYear returns the year with the given id, or nil when the backend never
// offered it for this role.
func (s AcademicYearSet) FindYear(id int) *AcademicYear {
	for i := range s.Years {
		if s.Years[i].ID == id {
			return &s.Years[i]
		}
	}
	return nil
}
