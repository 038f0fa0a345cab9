package heading

// Heading is the canonical gyro reading for this app: the integrated heading
// since the last reset plus the instantaneous rate, suitable for JSON and
// MQTT.
type Heading struct {
	AngleDeg   float64 `json:"angle_deg"`
	RateDegSec float64 `json:"rate_deg_sec"`
	Channel    int     `json:"channel"`
	Time       string  `json:"time"` // RFC3339
}
