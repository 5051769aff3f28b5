package world

import "fmt"

// One tick is one in-world minute.
const (
	MinutesPerHour = 60
	HoursPerDay    = 24
	nightStartHour = 18
	nightEndHour   = 6
)

// HourOfDay returns the in-world hour for a tick count.
func HourOfDay(tick uint64) int {
	return int(tick/MinutesPerHour) % HoursPerDay
}

// IsNight reports whether the tick falls in the dark hours.
func IsNight(tick uint64) bool {
	h := HourOfDay(tick)
	return h >= nightStartHour || h < nightEndHour
}

// WorldTime renders a tick as a readable in-world clock reading.
func WorldTime(tick uint64) string {
	minutes := tick % MinutesPerHour
	hours := HourOfDay(tick)
	days := tick / (MinutesPerHour * HoursPerDay)
	return fmt.Sprintf("Day %d, %02d:%02d", days+1, hours, minutes)
}
