package workers

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	streamworker "github.com/freezer333/streaming-worker"
)

const defaultSensorInterval = 250 * time.Millisecond

// Sensor simulates a periodic instrument: every interval it emits one
// {"reading", json} sample. Between ticks it drains control messages with
// TryPop so the timer never blocks on the inbox: "stop" ends the run,
// "interval" retunes the period with a duration payload. Closing the inbox
// ends the run too.
type Sensor struct {
	interval time.Duration
	count    int
}

// NewSensor is the sensor factory. Options: "interval", the tick period
// (default 250ms), and "count", the total readings to emit (default 0,
// unbounded).
func NewSensor(opts streamworker.Options) (streamworker.Worker, error) {
	s := &Sensor{interval: defaultSensorInterval}
	if v := opts.Get("interval", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("sensor: invalid interval %q", v)
		}
		s.interval = d
	}
	if v := opts.Get("count", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("sensor: invalid count %q", v)
		}
		s.count = n
	}
	return s, nil
}

type sensorReading struct {
	Sequence    int     `json:"sequence"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	At          string  `json:"at"`
}

// Execute ticks until stopped, the inbox closes, or count readings are out.
func (s *Sensor) Execute(in *streamworker.Inbox, out *streamworker.Outbox) error {
	interval := s.interval
	for seq := 0; s.count == 0 || seq < s.count; seq++ {
		for {
			m, ok := in.TryPop()
			if !ok {
				break
			}
			switch m.Name {
			case "stop":
				return nil
			case "interval":
				if d, err := time.ParseDuration(m.Data); err == nil && d > 0 {
					interval = d
				}
			}
		}
		if in.Closed() {
			return nil
		}
		if seq > 0 {
			time.Sleep(interval)
		}

		buf, err := json.Marshal(sensorReading{
			Sequence:    seq,
			Temperature: 20 + rand.Float64()*5,
			Humidity:    35 + rand.Float64()*20,
			At:          time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("sensor: encode reading: %w", err)
		}
		if err := out.Send(streamworker.Message{Name: "reading", Data: string(buf)}); err != nil {
			return err
		}
	}
	return nil
}
