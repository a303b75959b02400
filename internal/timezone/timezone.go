// Package timezone holds the static timezone table used by the date_cgi
// endpoint. The device identifies a zone by its position in this table.
package timezone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownTimezone is returned when no entry matches exactly.
	ErrUnknownTimezone = errors.New("unknown timezone")
	// ErrIndexOutOfRange is returned by ByIndex for indices outside the table.
	ErrIndexOutOfRange = errors.New("timezone index out of range")
)

// Entry describes one zone.
type Entry struct {
	Offset       time.Duration `json:"offset"`
	Abbreviation string        `json:"abbreviation"`
	Value        int           `json:"value"`
	Description  string        `json:"description"`
}

const half = 30 * time.Minute

func h(n int) time.Duration { return time.Duration(n) * time.Hour }

// table is ordered by ascending offset; Value equals the position.
var table = [...]Entry{
	{-h(12), "IDLW", 0, "International Date Line West"},
	{-h(11), "SST", 1, "Midway Island, Samoa"},
	{-h(10), "HST", 2, "Hawaii"},
	{-h(9), "AKST", 3, "Alaska"},
	{-h(8), "PST", 4, "Pacific Time (US & Canada)"},
	{-h(7), "MST", 5, "Mountain Time (US & Canada)"},
	{-h(6), "CST", 6, "Central Time (US & Canada), Mexico City"},
	{-h(5), "EST", 7, "Eastern Time (US & Canada), Bogota, Lima"},
	{-h(4), "AST", 8, "Atlantic Time (Canada), Caracas, La Paz"},
	{-h(3) - half, "NST", 9, "Newfoundland"},
	{-h(3), "BRT", 10, "Brasilia, Buenos Aires, Georgetown"},
	{-h(2), "FNT", 11, "Mid-Atlantic"},
	{-h(1), "AZOT", 12, "Azores, Cape Verde Islands"},
	{0, "GMT", 13, "Greenwich Mean Time, Dublin, London"},
	{0, "WET", 14, "Western Europe, Lisbon, Casablanca"},
	{h(1), "CET", 15, "Berlin, Paris, Rome, Warsaw"},
	{h(1), "WAT", 16, "West Central Africa"},
	{h(2), "EET", 17, "Athens, Helsinki, Kyiv, Riga"},
	{h(2), "KALT", 18, "Kaliningrad"},
	{h(2), "SAST", 19, "Cairo, Harare, Pretoria"},
	{h(3), "EAT", 20, "Nairobi, Baghdad, Riyadh"},
	{h(3), "MSK", 21, "Moscow, St. Petersburg, Volgograd"},
	{h(3) + half, "IRST", 22, "Tehran"},
	{h(4), "SAMT", 23, "Samara, Abu Dhabi, Baku"},
	{h(4) + half, "AFT", 24, "Kabul"},
	{h(5), "YEKT", 25, "Yekaterinburg, Islamabad, Tashkent"},
	{h(6), "OMST", 26, "Omsk, Almaty, Dhaka"},
	{h(7), "KRAT", 27, "Krasnoyarsk, Novosibirsk, Bangkok"},
	{h(8), "IRKT", 28, "Irkutsk, Beijing, Singapore"},
	{h(9), "YAKT", 29, "Yakutsk, Seoul, Tokyo"},
	{h(9) + half, "ACST", 30, "Adelaide, Darwin"},
	{h(10), "VLAT", 31, "Vladivostok, Sydney, Guam"},
	{h(11), "MAGT", 32, "Magadan, Sakhalin, Solomon Islands"},
	{h(12), "PETT", 33, "Kamchatka, Fiji, Marshall Islands"},
	{h(12), "NZST", 34, "Auckland, Wellington"},
}

// Len returns the number of entries.
func Len() int { return len(table) }

// All returns a copy of the table.
func All() []Entry {
	out := make([]Entry, len(table))
	copy(out, table[:])
	return out
}

// ByIndex returns the entry at position i.
func ByIndex(i int) (Entry, error) {
	if i < 0 || i >= len(table) {
		return Entry{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return table[i], nil
}

// ByOffset returns the first entry whose offset equals d exactly.
func ByOffset(d time.Duration) (Entry, error) {
	for _, e := range table {
		if e.Offset == d {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: offset %s", ErrUnknownTimezone, formatOffset(d))
}

// ByAbbreviation returns the entry with the given abbreviation. The match
// is exact and case-sensitive.
func ByAbbreviation(code string) (Entry, error) {
	for _, e := range table {
		if e.Abbreviation == code {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrUnknownTimezone, code)
}

// Abbreviations lists every abbreviation in table order.
func Abbreviations() []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = e.Abbreviation
	}
	return out
}

// WireValue returns the code sent in a date_cgi set request.
func WireValue(e Entry) string {
	return strconv.Itoa(e.Value)
}

// Location returns a fixed zone with the entry's offset.
func (e Entry) Location() *time.Location {
	return time.FixedZone(e.Abbreviation, int(e.Offset/time.Second))
}

// String formats the entry as "(GMT+03:00) MSK".
func (e Entry) String() string {
	return fmt.Sprintf("(GMT%s) %s", formatOffset(e.Offset), e.Abbreviation)
}

func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, hours, minutes)
}

// ParseOffset parses "+03:00", "-3:30", "+4" or "0".
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty offset")
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}

	hh, mm, hasMinutes := strings.Cut(s, ":")
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid offset hours %q", hh)
	}
	minutes := 0
	if hasMinutes {
		if minutes, err = strconv.Atoi(mm); err != nil || minutes < 0 || minutes > 59 {
			return 0, fmt.Errorf("invalid offset minutes %q", mm)
		}
	}

	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if neg {
		d = -d
	}
	return d, nil
}
