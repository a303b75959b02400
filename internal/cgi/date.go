package cgi

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beward-tools/bewardctl/internal/protocol"
	"github.com/beward-tools/bewardctl/internal/timezone"
)

// Date fields in the order DateModule stores them.
const (
	DateMonth    = "month"
	DateDay      = "day"
	DateYear     = "year"
	DateHour     = "hour"
	DateMinute   = "minute"
	DateSecond   = "second"
	DateTimezone = "timezone"
	DateNTPHost  = "ntpHost"
)

// DateModule reads and sets the panel clock through date_cgi.
//
// The device answers a get with one bare line such as
//
//	Mar 14, 2024 12:30:45 MSK pool.ntp.org
//
// which is split into month, day, year, hour, minute, second, timezone and
// ntpHost. On set the timezone abbreviation is replaced by its wire value.
type DateModule struct {
	*Module
}

// NewDateModule creates the date_cgi module.
func NewDateModule(t Transport) *DateModule {
	return &DateModule{Module: New(t, "date", "cgi-bin/date_cgi",
		WithDecoder(decodeDate),
		WithEncoder(encodeDate),
	)}
}

func decodeDate(resp *protocol.Response) (*protocol.Fields, error) {
	tokens := strings.Fields(strings.ReplaceAll(resp.Message(), ",", ""))
	if len(tokens) < 4 {
		return nil, NewProtocolError(MsgUnknownParse)
	}

	fields := protocol.NewFields()
	fields.Set(DateMonth, tokens[0])
	fields.Set(DateDay, tokens[1])
	fields.Set(DateYear, tokens[2])
	for i, part := range strings.Split(tokens[3], ":") {
		switch i {
		case 0:
			fields.Set(DateHour, part)
		case 1:
			fields.Set(DateMinute, part)
		case 2:
			fields.Set(DateSecond, part)
		}
	}
	if len(tokens) > 4 {
		fields.Set(DateTimezone, tokens[4])
	}
	if len(tokens) > 5 {
		fields.Set(DateNTPHost, tokens[5])
	}
	return fields, nil
}

func encodeDate(fields *protocol.Fields) (*protocol.Fields, error) {
	if tz, ok := fields.Get(DateTimezone); ok {
		entry, err := lookupTimezone(tz)
		if err != nil {
			return nil, NewDecodeError(err)
		}
		fields.Set(DateTimezone, timezone.WireValue(entry))
	}
	if month, ok := fields.Get(DateMonth); ok {
		n, err := monthNumber(month)
		if err != nil {
			return nil, NewDecodeError(err)
		}
		fields.Set(DateMonth, strconv.Itoa(n))
	}
	return fields, nil
}

// lookupTimezone accepts an abbreviation or a wire value.
func lookupTimezone(s string) (timezone.Entry, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return timezone.ByIndex(n)
	}
	return timezone.ByAbbreviation(s)
}

// monthNumber accepts "3", "Mar" or "March".
func monthNumber(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return n, nil
	}
	for _, layout := range []string{"Jan", "January"} {
		if t, err := time.Parse(layout, s); err == nil {
			return int(t.Month()), nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// Timezone returns the zone reported by the device.
func (d *DateModule) Timezone() (timezone.Entry, error) {
	tz, ok := d.Value(DateTimezone)
	if !ok {
		return timezone.Entry{}, NewProtocolError(MsgUnknownParse)
	}
	entry, err := lookupTimezone(tz)
	if err != nil {
		return timezone.Entry{}, NewDecodeError(err)
	}
	return entry, nil
}

// Time returns the device clock in the device's zone.
func (d *DateModule) Time() (time.Time, error) {
	entry, err := d.Timezone()
	if err != nil {
		return time.Time{}, err
	}

	var parts [6]int
	for i, name := range []string{DateYear, DateMonth, DateDay, DateHour, DateMinute, DateSecond} {
		v, _ := d.Value(name)
		if name == DateMonth {
			parts[i], err = monthNumber(v)
		} else {
			parts[i], err = strconv.Atoi(v)
		}
		if err != nil {
			return time.Time{}, NewDecodeError(fmt.Errorf("%s: %w", name, err))
		}
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, entry.Location()), nil
}

// SetDateTime sets the panel clock to t in zone tz. The module is loaded
// first when needed so that the remaining fields are sent unchanged.
func (d *DateModule) SetDateTime(ctx context.Context, t time.Time, tz timezone.Entry) error {
	if !d.Loaded() {
		if err := d.Load(ctx); err != nil {
			return err
		}
	}
	if err := d.Update(map[string]string{
		DateDay:      strconv.Itoa(t.Day()),
		DateMonth:    strconv.Itoa(int(t.Month())),
		DateYear:     strconv.Itoa(t.Year()),
		DateHour:     strconv.Itoa(t.Hour()),
		DateMinute:   strconv.Itoa(t.Minute()),
		DateSecond:   strconv.Itoa(t.Second()),
		DateTimezone: tz.Abbreviation,
	}); err != nil {
		return err
	}
	return d.Set(ctx)
}

var (
	dateOnly     = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	dateWithTime = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})\s+(\d{1,2}):(\d{1,2})$`)
)

// ErrInvalidDate is returned by ParseDate for malformed input.
var ErrInvalidDate = errors.New("invalid date, need DD.MM.YYYY or DD.MM.YYYY HH:MM")

// ParseDate parses "DD.MM.YYYY HH:MM" or "DD.MM.YYYY". Seconds are random.
// A date without a time gets a random time between 08:00 and 18:59.
func ParseDate(s string, loc *time.Location, rnd *rand.Rand) (time.Time, error) {
	s = strings.TrimSpace(s)
	var day, month, year, hour, minute int

	if m := dateWithTime.FindStringSubmatch(s); m != nil {
		day, month, year, hour, minute = atoi(m[1]), atoi(m[2]), atoi(m[3]), atoi(m[4]), atoi(m[5])
	} else if m := dateOnly.FindStringSubmatch(s); m != nil {
		day, month, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
		hour, minute = 8+rnd.IntN(11), rnd.IntN(60)
	} else {
		return time.Time{}, ErrInvalidDate
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, ErrInvalidDate
	}
	t := time.Date(year, time.Month(month), day, hour, minute, rnd.IntN(60), 0, loc)
	if t.Day() != day {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
