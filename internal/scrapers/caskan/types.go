package caskan

import "fmt"

// Credentials are the three values of the two step login form.
type Credentials struct {
	ShopCode string
	LoginId  string
	Password string
}

// HomeInfo is the top page of the portal. Sales is keyed by today, yesterday,
// this_month and last_month, periods whose label is missing from the page are
// absent.
type HomeInfo struct {
	Sales          map[string]string `json:"sales"`
	AttendanceText string            `json:"attendance_text"`
	GuidanceText   string            `json:"guidance_text"`
}

type ScheduleText struct {
	ScheduleText string `json:"schedule_text"`
}

type CastStatus string

const (
	CastPublished   CastStatus = "掲載中"
	CastUnpublished CastStatus = "未掲載"
)

type CastRecord struct {
	Name   string     `json:"name"`
	Status CastStatus `json:"status"`
}

func (c CastRecord) String() string {
	return fmt.Sprintf("%s [%s]", c.Name, c.Status)
}
