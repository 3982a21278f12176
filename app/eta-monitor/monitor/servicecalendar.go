package monitor

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/aa"
)

// serviceCalendar decides when the fleet is dormant and which service class
// a tick falls under
type serviceCalendar struct {
	calendar       *cal.BusinessCalendar
	quietHourStart int
	quietHourEnd   int
}

// Jakarta fixed-date public holidays; movable religious holidays come from
// the ecumenical definitions below
var (
	newYear = &cal.Holiday{
		Name:  "Tahun Baru",
		Type:  cal.ObservancePublic,
		Month: time.January,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
	labourDay = &cal.Holiday{
		Name:  "Hari Buruh",
		Type:  cal.ObservancePublic,
		Month: time.May,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
	pancasilaDay = &cal.Holiday{
		Name:  "Hari Lahir Pancasila",
		Type:  cal.ObservancePublic,
		Month: time.June,
		Day:   1,
		Func:  cal.CalcDayOfMonth,
	}
	independenceDay = &cal.Holiday{
		Name:  "Hari Kemerdekaan",
		Type:  cal.ObservancePublic,
		Month: time.August,
		Day:   17,
		Func:  cal.CalcDayOfMonth,
	}
	christmasDay = &cal.Holiday{
		Name:  "Hari Natal",
		Type:  cal.ObservancePublic,
		Month: time.December,
		Day:   25,
		Func:  cal.CalcDayOfMonth,
	}
)

// makeServiceCalendar builds the serviceCalendar with the fleet's observed
// holidays and dormant window
func makeServiceCalendar(quietHourStart int, quietHourEnd int) *serviceCalendar {
	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		newYear,
		labourDay,
		pancasilaDay,
		independenceDay,
		christmasDay,
		aa.GoodFriday,
		aa.AscensionDay,
	)
	return &serviceCalendar{
		calendar:       calendar,
		quietHourStart: quietHourStart,
		quietHourEnd:   quietHourEnd,
	}
}

// isQuietHours returns true during the nightly window where ingestion and
// prediction are skipped
func (s *serviceCalendar) isQuietHours(at time.Time) bool {
	hour := at.Hour()
	return hour >= s.quietHourStart && hour < s.quietHourEnd
}

// serviceClass labels the kind of service day at falls on
func (s *serviceCalendar) serviceClass(at time.Time) string {
	if _, observed, _ := s.calendar.IsHoliday(at); observed {
		return "holiday"
	}
	switch at.Weekday() {
	case time.Saturday:
		return "saturday"
	case time.Sunday:
		return "sunday"
	default:
		return "weekday"
	}
}
