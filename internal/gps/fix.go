package gps

// Fix is the GPS course reference published next to the gyro heading. Course
// over ground is only trustworthy while moving, so speed and validity ride
// along for the consumers to filter on.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56"
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)
}
