package display

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"BartWatch/internal/domain/models"
	applogger "BartWatch/pkg/logger"
)

// Width is the character width of each emulated LCD row.
const Width = 16

// Console renders a two-row character LCD into the log. Rows are only logged when
// their content changes. A shown train stays on row two for holdTicks clock redraws.
type Console struct {
	logger    *applogger.Logger
	holdTicks int

	mu    sync.Mutex
	rows  [2]string
	hold  int
	ready bool
}

func NewConsole(logger *applogger.Logger, holdTicks int) *Console {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Console{logger: logger.With(applogger.String("component", "lcd")), holdTicks: holdTicks}
}

// Boot shows the splash screen before the monitor starts.
func (c *Console) Boot(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.render(center("BART Watch"), center("booting..."))
	return nil
}

// Init clears the screen once the monitor has announced itself.
func (c *Console) Init(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
	c.hold = 0
	c.render("", "")
	return nil
}

// Clock redraws row one with the time; row two is cleared once its hold expires.
func (c *Console) Clock(_ context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return fmt.Errorf("lcd not initialised")
	}
	second := c.rows[1]
	if c.hold > 0 {
		c.hold--
	} else {
		second = ""
	}
	c.render(center(now.Format("Mon Jan 2 15:04")), second)
	return nil
}

// Show puts the train detail on row two.
func (c *Console) Show(_ context.Context, p models.NotificationPacket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return fmt.Errorf("lcd not initialised")
	}
	c.hold = c.holdTicks
	c.render(c.rows[0], fmt.Sprintf("%-8s %2dc %.1s", abbreviate(p.TrainLine), p.CarNumber, p.Compass))
	c.logger.Info("train", applogger.String("station", p.Station), applogger.String("detail", p.String()))
	return nil
}

// Rows returns the current screen.
func (c *Console) Rows() [2]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

func (c *Console) render(top, bottom string) {
	next := [2]string{fit(top), fit(bottom)}
	if next == c.rows {
		return
	}
	c.rows = next
	c.logger.Debug("lcd", applogger.String("row1", next[0]), applogger.String("row2", next[1]))
}

func fit(s string) string {
	if len(s) > Width {
		return s[:Width]
	}
	return s
}

func center(s string) string {
	s = fit(s)
	pad := (Width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// abbreviate keeps destination names short enough to share a row.
func abbreviate(dest string) string {
	words := strings.FieldsFunc(dest, func(r rune) bool { return r == ' ' || r == '/' })
	if len(words) == 0 {
		return ""
	}
	if len(dest) <= 8 {
		return dest
	}
	if len(words[0]) > 8 {
		return words[0][:8]
	}
	return words[0]
}
