package notifier

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// Snapshot is the notifier's observable state after a poll.
type Snapshot struct {
	State     model.NotifierState     `json:"state"`
	Alert     model.AlertState        `json:"alert"`
	Count     int                     `json:"count"`
	Vehicles  []model.ExceededVehicle `json:"vehicles"`
	LastCheck time.Time               `json:"last_check,omitempty"`
	NextCheck time.Time               `json:"next_check,omitempty"`
}

// View is an alert display region.
type View interface {
	// Render shows the latest poll result.
	Render(Snapshot)
	// Clear resets the region when the notifier stops.
	Clear()
}

// TextView renders the alert region as plain text.
type TextView struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextView returns a TextView writing to w.
func NewTextView(w io.Writer) *TextView {
	return &TextView{w: w}
}

// Render writes the alert banner and one line per vehicle.
func (v *TextView) Render(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	stamp := s.LastCheck.Format("15:04:05")
	if s.Alert != model.AlertStateAlerting {
		fmt.Fprintf(&b, "[%s] no vehicles over the time limit\n", stamp)
		io.WriteString(v.w, b.String())
		return
	}

	plural := ""
	if s.Count > 1 {
		plural = "s"
	}
	fmt.Fprintf(&b, "[%s] ALERT: %d vehicle%s over the time limit\n", stamp, s.Count, plural)
	for _, veh := range s.Vehicles {
		fmt.Fprintf(&b, "  %-8s  %-20s  stall %-4s  %-22s  exceeded %s\n",
			veh.Plate, veh.Owner, veh.Stall, veh.Location(), FormatExceeded(veh.Exceeded))
	}
	io.WriteString(v.w, b.String())
}

// Clear writes a stop marker.
func (v *TextView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	io.WriteString(v.w, "notifier stopped\n")
}

// FormatExceeded renders the backend's over-limit amount, which is in
// minutes, as whole hours.
func FormatExceeded(minutes float64) string {
	hours := int(math.Floor(minutes / 60))
	if hours < 0 {
		hours = 0
	}
	return fmt.Sprintf("%dh", hours)
}
