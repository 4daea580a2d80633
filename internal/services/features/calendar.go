package features

import (
	"math"
	"time"
)

// CalendarWidth is the number of covariates CalendarEncoding emits per day.
const CalendarWidth = 4

// CalendarEncoding encodes month of year and day of week on the unit circle so
// December sits next to January and Sunday next to Monday.
func CalendarEncoding(d time.Time) [CalendarWidth]float64 {
	month := 2 * math.Pi * float64(d.Month()-1) / 12
	dow := 2 * math.Pi * float64(d.Weekday()) / 7
	return [CalendarWidth]float64{
		math.Sin(month), math.Cos(month),
		math.Sin(dow), math.Cos(dow),
	}
}

// AppendCalendar appends the encodings for n consecutive days starting at start.
func AppendCalendar(dst []float64, start time.Time, n int) []float64 {
	for k := 0; k < n; k++ {
		enc := CalendarEncoding(start.AddDate(0, 0, k))
		dst = append(dst, enc[:]...)
	}
	return dst
}
