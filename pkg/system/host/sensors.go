package host

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v4/sensors"
)

// Component is a temperature sensor, in degrees Celsius.
type Component struct {
	Label       string
	Temperature float64
	// Max is the highest temperature seen since the sensor was first read.
	Max      float64
	Critical float64
}

type Components struct {
	mu    sync.RWMutex
	comps []Component
	max   map[string]float64

	temperatures func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewComponents() *Components {
	return &Components{
		max:          make(map[string]float64),
		temperatures: sensors.TemperaturesWithContext,
	}
}

// Refresh reads every sensor. Some sensors failing is reported as an error
// but the readable ones are still kept.
func (c *Components) Refresh(ctx context.Context) error {
	temps, err := c.temperatures(ctx)
	if err != nil && len(temps) == 0 {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	comps := make([]Component, 0, len(temps))
	for _, t := range temps {
		m := max(c.max[t.SensorKey], t.Temperature)
		c.max[t.SensorKey] = m
		comps = append(comps, Component{
			Label:       t.SensorKey,
			Temperature: t.Temperature,
			Max:         m,
			Critical:    t.Critical,
		})
	}
	c.comps = comps
	return err
}

func (c *Components) List() []Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Component, len(c.comps))
	copy(out, c.comps)
	return out
}
