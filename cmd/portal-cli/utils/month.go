package utils

import (
	"fmt"
	"portalbot-backend/internal/shiftcal"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ParseYearMonth parses the <year> <month> argument pair.
func ParseYearMonth(args []string) (int, int, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", args[0])
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q", args[1])
	}
	return year, month, nil
}

// RenderMonth prints one row per shift, days without shifts are left out.
func RenderMonth(m shiftcal.MonthlyShift) {
	days := make([]string, 0, len(m.Days))
	for day := range m.Days {
		days = append(days, day)
	}
	sort.Strings(days)

	t := NewTable()
	t.SetTitle(fmt.Sprintf("%d/%02d", m.Year, m.Month))
	t.AppendHeader(table.Row{"day", "weekday", "name", "time", "room"})
	for _, day := range days {
		record := m.Days[day]
		for _, s := range record.Shifts {
			t.AppendRow(table.Row{day, record.Weekday, s.Name, s.Time, s.RoomName})
		}
	}
	t.Render()
}
