package state

import (
	"time"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		// Used when configuration requests cover generation and manuscript
		// has none. Rasterized by utils/images on demand.
		DefaultCover: []byte(`<svg viewBox="0 0 600 800" xmlns="http://www.w3.org/2000/svg">
  <rect x="0" y="0" width="600" height="800" fill="none" stroke="black" stroke-width="4"/>
  <rect x="40" y="40" width="520" height="720" fill="none" stroke="black" stroke-width="1"/>
  <path d="M150 300 H450
           M150 310 H450"
        stroke="black" fill="none" stroke-width="1"/>
  <path d="M270 260
           C285 240 315 240 330 260
           M280 270
           C292 255 308 255 320 270"
        stroke="black" fill="none" stroke-width="1.5"/>
  <path d="M150 500 H450
           M150 510 H450"
        stroke="black" fill="none" stroke-width="1"/>
</svg>`),
	}
}
