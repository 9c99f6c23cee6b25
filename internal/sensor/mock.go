package sensor

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Mock generates a smoothly tilting accelerometer signal.
type Mock struct {
	RateHz int
}

func (m *Mock) Run(ctx context.Context, h Handler) error {
	rate := m.RateHz
	if rate <= 0 {
		rate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			h(Event{Values: mockValues(now.Sub(start).Seconds()), Time: now})
		}
	}
}

// mockValues tilts a gravity vector slowly around two axes, plus jitter.
func mockValues(t float64) []float64 {
	roll := 0.35 * math.Sin(t*0.5)
	pitch := 0.25 * math.Cos(t*0.35)
	return []float64{
		-StandardGravity*math.Sin(pitch) + rand.Float64()*0.02,
		StandardGravity*math.Cos(pitch)*math.Sin(roll) + rand.Float64()*0.02,
		StandardGravity*math.Cos(pitch)*math.Cos(roll) + rand.Float64()*0.02,
	}
}
