package device

import (
	"sync"

	"github.com/foodstand/guestkit/internal/model"
)

// Prober classifies the runtime once and serves the cached result for the
// rest of its lifetime, even if later calls pass a different user agent.
type Prober struct {
	once sync.Once
	ctx  model.DeviceContext
}

// NewProber creates an unprobed Prober
func NewProber() *Prober {
	return &Prober{}
}

// Probe classifies userAgent on the first call and returns the cached
// context afterwards
func (p *Prober) Probe(userAgent string) model.DeviceContext {
	p.once.Do(func() {
		p.ctx = model.DeviceContext{
			Class:   DetectDeviceClass(userAgent),
			Browser: DetectBrowserFamily(userAgent),
		}
	})
	return p.ctx
}
