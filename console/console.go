// Package console renders log lines onto the host framebuffer through a
// tinyterm terminal.
package console

import (
	"errors"
	"image/color"
	"sync"

	"spindle/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

var _ tinyterm.Displayer = (*fbDisplay)(nil)

var font = &proggy.TinySZ8pt7b

var ErrNoFramebuffer = errors.New("console: display has no framebuffer")

// Console is a hal.Logger that draws each line into a terminal on the
// framebuffer. Lines may be written from any goroutine; Flush presents the
// frame when something changed since the previous call. Every write to the
// framebuffer and every Present happens under the console's lock.
type Console struct {
	mu    sync.Mutex
	d     *fbDisplay
	t     *tinyterm.Terminal
	font  *tinyfont.Font
	echo  hal.Logger
	dirty bool
	lines uint64
}

// New returns a console drawing on disp. Every line is also passed to echo
// when it is non-nil.
func New(disp hal.Display, echo hal.Logger) (*Console, error) {
	if disp == nil {
		return nil, ErrNoFramebuffer
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return nil, ErrNoFramebuffer
	}

	c := &Console{
		d:    newFBDisplay(fb),
		font: font,
		echo: echo,
	}
	if err := c.reset(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Console) reset() error {
	height, offset, err := LineMetrics(c.font)
	if err != nil {
		return err
	}
	w, h := c.d.Size()
	if w <= 0 || h < height {
		return ErrNoFramebuffer
	}

	_ = c.d.FillRectangle(0, 0, w, h, color.RGBA{A: 0xFF})
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:              c.font,
		FontHeight:        height,
		FontOffset:        offset,
		UseSoftwareScroll: true,
	})
	c.dirty = true
	return nil
}

// Draw runs fn with exclusive use of the framebuffer and presents the result
// on the next Flush. Terminal output resumes below whatever fn leaves.
func (c *Console) Draw(fn func(fb hal.Framebuffer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.d.fb)
	c.dirty = true
}

// clearScreen blanks the screen and homes the cursor.
func (c *Console) clearScreen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.reset()
}

func (c *Console) WriteLineString(s string) {
	c.mu.Lock()
	c.writeLocked([]byte(s))
	c.mu.Unlock()

	if c.echo != nil {
		c.echo.WriteLineString(s)
	}
}

func (c *Console) WriteLineBytes(b []byte) {
	c.mu.Lock()
	c.writeLocked(b)
	c.mu.Unlock()

	if c.echo != nil {
		c.echo.WriteLineBytes(b)
	}
}

func (c *Console) writeLocked(b []byte) {
	// The terminal starts on row 0, so break before every line but the first.
	if c.lines > 0 {
		_, _ = c.t.Write([]byte{'\n'})
	}
	_, _ = c.t.Write(b)
	c.lines++
	c.dirty = true
}

// lineCount returns how many lines have been written.
func (c *Console) lineCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}

// Flush presents the framebuffer if lines were written since the last call.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	c.dirty = false
	return c.d.Display()
}
