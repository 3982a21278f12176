package monitor

import (
	"testing"
	"time"
)

func Test_isQuietHours(t *testing.T) {
	calendar := makeServiceCalendar(1, 5)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "just before one am", at: time.Date(2026, 7, 27, 0, 59, 0, 0, testLocation), want: false},
		{name: "one am", at: time.Date(2026, 7, 27, 1, 0, 0, 0, testLocation), want: true},
		{name: "deep night", at: time.Date(2026, 7, 27, 3, 30, 0, 0, testLocation), want: true},
		{name: "four fifty nine", at: time.Date(2026, 7, 27, 4, 59, 0, 0, testLocation), want: true},
		{name: "five am", at: time.Date(2026, 7, 27, 5, 0, 0, 0, testLocation), want: false},
		{name: "midday", at: time.Date(2026, 7, 27, 12, 0, 0, 0, testLocation), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendar.isQuietHours(tt.at); got != tt.want {
				t.Errorf("isQuietHours(%v) = %t, want %t", tt.at, got, tt.want)
			}
		})
	}
}

func Test_serviceClass(t *testing.T) {
	calendar := makeServiceCalendar(1, 5)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "monday", at: time.Date(2026, 7, 27, 12, 0, 0, 0, testLocation), want: "weekday"},
		{name: "saturday", at: time.Date(2026, 8, 1, 12, 0, 0, 0, testLocation), want: "saturday"},
		{name: "sunday", at: time.Date(2026, 8, 2, 12, 0, 0, 0, testLocation), want: "sunday"},
		{name: "independence day", at: time.Date(2026, 8, 17, 12, 0, 0, 0, testLocation), want: "holiday"},
		{name: "new year", at: time.Date(2026, 1, 1, 12, 0, 0, 0, testLocation), want: "holiday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calendar.serviceClass(tt.at); got != tt.want {
				t.Errorf("serviceClass(%v) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}
