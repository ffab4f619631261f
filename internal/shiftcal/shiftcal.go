// Package shiftcal stitches the weekly shift tables of the booking portal into a
// calendar shaped month.
package shiftcal

import (
	"context"
	"fmt"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/telemetry"
	"time"
)

const (
	report_month_room_map = "month.room-map"
	report_month_entry    = "month.entry"
)

const dayLayout = "2006-01-02"

// Weekdays holds the weekday labels starting on monday.
var Weekdays = [7]string{"月", "火", "水", "木", "金", "土", "日"}

// WeekdayLabel returns the japanese weekday label of t.
func WeekdayLabel(t time.Time) string {
	return Weekdays[(int(t.Weekday())+6)%7]
}

// Entry is one shift as it appears on a weekly shift table.
type Entry struct {
	// Day is formatted as YYYY-MM-DD.
	Day    string
	Name   string
	Time   string
	RoomId string
}

type Shift struct {
	Name     string `json:"name"`
	Time     string `json:"time"`
	RoomId   string `json:"room_id"`
	RoomName string `json:"room_name"`
}

type DayRecord struct {
	Weekday   string   `json:"weekday"`
	Shifts    []Shift  `json:"shifts"`
	RoomsUsed []string `json:"rooms_used"`
}

type MonthlyShift struct {
	Year    int                  `json:"year"`
	Month   int                  `json:"month"`
	RoomMap map[string]string    `json:"room_map"`
	Days    map[string]DayRecord `json:"days"`
}

// Source is what the aggregator needs from the booking portal.
type Source interface {
	RoomMap(ctx context.Context) (map[string]string, error)
	WeekShifts(ctx context.Context, start time.Time) ([]Entry, error)
}

type Aggregator struct {
	src Source
	tel telemetry.API
}

func NewAggregator(src Source, tel telemetry.API) Aggregator {
	assert.NotNil(src, "src")
	assert.NotNil(tel, "tel")
	return Aggregator{
		src: src,
		tel: telemetry.NewScopedAPI("shiftcal", tel),
	}
}

// MonthBounds returns the first and the last day of a month.
func MonthBounds(year, month int) (first, last time.Time, err error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month: %d", month)
	}
	if year < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid year: %d", year)
	}
	first = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last, nil
}

// Month fetches one week per 7 day stride starting at the 1st of the month and
// returns every date of the month, with or without shifts.
//
// A failure to fetch the room map only costs the room names, a failure to fetch any
// of the weeks fails the whole month.
func (a Aggregator) Month(ctx context.Context, year, month int) (MonthlyShift, error) {
	first, last, err := MonthBounds(year, month)
	if err != nil {
		return MonthlyShift{}, err
	}

	roomMap, err := a.src.RoomMap(ctx)
	if err != nil {
		a.tel.ReportWarning(report_month_room_map, err)
		roomMap = nil
	}
	if roomMap == nil {
		roomMap = map[string]string{}
	}

	shifts := map[string][]Shift{}
	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 0, 7) {
		entries, err := a.src.WeekShifts(ctx, cursor)
		if err != nil {
			return MonthlyShift{}, fmt.Errorf("week starting %s: %w", cursor.Format(dayLayout), err)
		}
		for _, e := range entries {
			day, err := time.Parse(dayLayout, e.Day)
			if err != nil {
				a.tel.ReportWarning(report_month_entry, fmt.Errorf("parse day %q: %w", e.Day, err))
				continue
			}
			if day.Year() != year || int(day.Month()) != month {
				continue
			}

			roomName, ok := roomMap[e.RoomId]
			if !ok {
				roomName = "Room" + e.RoomId
			}
			shifts[e.Day] = append(shifts[e.Day], Shift{
				Name:     e.Name,
				Time:     e.Time,
				RoomId:   e.RoomId,
				RoomName: roomName,
			})
		}
	}

	days := map[string]DayRecord{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		dayShifts := shifts[key]
		if dayShifts == nil {
			dayShifts = []Shift{}
		}
		days[key] = DayRecord{
			Weekday:   WeekdayLabel(d),
			Shifts:    dayShifts,
			RoomsUsed: roomsUsed(dayShifts),
		}
	}

	return MonthlyShift{
		Year:    year,
		Month:   month,
		RoomMap: roomMap,
		Days:    days,
	}, nil
}

func roomsUsed(shifts []Shift) []string {
	seen := map[string]struct{}{}
	rooms := []string{}
	for _, s := range shifts {
		if _, ok := seen[s.RoomId]; ok {
			continue
		}
		seen[s.RoomId] = struct{}{}
		rooms = append(rooms, s.RoomId)
	}
	return rooms
}
