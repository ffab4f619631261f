package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type LineKind int

const (
	KindOther LineKind = iota
	KindDate
	KindRoom
	KindTime
	KindName
)

var nativeName = regexp.MustCompile(`^[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}]+$`)

// IsNativeName reports whether line is shorter than maxRunes and made only of
// hiragana, katakana and kanji.
func IsNativeName(line string, maxRunes int) bool {
	return line != "" &&
		utf8.RuneCountInString(line) < maxRunes &&
		nativeName.MatchString(line)
}

// Classifier sorts the rendered lines of a schedule page into date headers, room
// headers, time ranges and staff names.
type Classifier struct {
	// Date matches a date header, the first submatch (or the whole line if
	// WholeDateLine is set) is used as its label.
	Date          *regexp.Regexp
	WholeDateLine bool
	// Time matches a time range, only recognized after a date header.
	Time *regexp.Regexp
	// RoomKeyword is matched case-insensitively, empty disables room headers.
	RoomKeyword string
	// NameMaxRunes is the exclusive length limit of staff names, 0 disables them.
	NameMaxRunes int
}

var (
	// BookingSchedule classifies the weekly schedule of the booking portal.
	BookingSchedule = Classifier{
		Date:         regexp.MustCompile(`^(\d+/\d+\s*\([月火水木金土日]\))`),
		Time:         regexp.MustCompile(`\d{1,2}:\d{2}[〜~-]\d{1,2}:\d{2}`),
		RoomKeyword:  "room",
		NameMaxRunes: 15,
	}
	// GuidanceSchedule classifies the attendance table of the guidance portal.
	GuidanceSchedule = Classifier{
		Date:          regexp.MustCompile(`^(\d+/\d+|\d+月\d+日)`),
		WholeDateLine: true,
		Time:          regexp.MustCompile(`\d{1,2}:\d{2}`),
	}
)

// Classify returns the kind of a single line and the text to show for it. Time
// ranges and names are only recognized once a date header has been seen.
func (c Classifier) Classify(line string, afterDate bool) (LineKind, string) {
	if groups := c.Date.FindStringSubmatch(line); groups != nil {
		if c.WholeDateLine || len(groups) < 2 {
			return KindDate, line
		}
		return KindDate, groups[1]
	}
	if c.RoomKeyword != "" && strings.Contains(strings.ToLower(line), c.RoomKeyword) {
		return KindRoom, line
	}
	if !afterDate {
		return KindOther, line
	}
	if c.Time.MatchString(line) {
		return KindTime, line
	}
	if c.NameMaxRunes > 0 && IsNativeName(line, c.NameMaxRunes) {
		return KindName, line
	}
	return KindOther, line
}

// RenderSchedule renders the recognized lines with one emoji prefix per kind,
// unrecognized lines are dropped.
func (c Classifier) RenderSchedule(lines []string) []string {
	out := []string{}
	afterDate := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kind, text := c.Classify(line, afterDate)
		switch kind {
		case KindDate:
			afterDate = true
			out = append(out, "\n📅 "+text)
		case KindRoom:
			out = append(out, "  🏠 "+text)
		case KindTime:
			out = append(out, "  ⏰ "+text)
		case KindName:
			out = append(out, "  👤 "+text)
		}
	}
	return out
}
