package preview

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/matt-g-everett/slidetx/stream"
)

// Tracer prints the text of an animated element after every acknowledged
// frame, each run in its own colour, so a reveal can be followed from a
// terminal.
type Tracer struct {
	getter   Getter
	out      io.Writer
	renderer *lipgloss.Renderer
	label    lipgloss.Style
	log      *zap.Logger

	mu sync.Mutex
}

// NewTracer creates an instance of a Tracer writing to out. Colours are
// used only when out is a terminal.
func NewTracer(getter Getter, out io.Writer, log *zap.Logger) *Tracer {
	t := new(Tracer)
	t.getter = getter
	t.out = out
	t.renderer = lipgloss.NewRenderer(out)
	t.label = t.renderer.NewStyle().Foreground(lipgloss.Color("8"))
	t.log = log
	return t
}

func (t *Tracer) line(f *stream.Frame, text string, drops int) string {
	frame := "setup"
	if f.Index != stream.SetupFrame {
		frame = fmt.Sprintf("%d/%d", f.Index+1, f.Total)
	}
	return fmt.Sprintf("%s %s %s\n",
		t.label.Render(fmt.Sprintf("%-7s", frame)),
		text,
		t.label.Render(fmt.Sprintf("(%d drops)", drops)))
}

// FrameSent implements stream.Observer.
func (t *Tracer) FrameSent(ctx context.Context, presentationID string, f *stream.Frame) error {
	_, page, err := fetchPage(ctx, t.getter, presentationID, f.PageID)
	if err != nil {
		return err
	}

	var b strings.Builder
	if el := findElement(page, f.ElementID); el != nil {
		for _, rn := range runs(el) {
			style := t.renderer.NewStyle().Foreground(lipgloss.Color(rn.colour.Hex())).Bold(rn.bold)
			b.WriteString(style.Render(strings.ReplaceAll(rn.text, "\n", " ")))
		}
	}
	drops := 0
	for _, el := range page.PageElements {
		if strings.HasPrefix(el.ObjectId, f.ElementID+"_rain_") {
			drops++
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = io.WriteString(t.out, t.line(f, b.String(), drops))
	return err
}

// SequenceDone implements stream.Observer.
func (t *Tracer) SequenceDone(_ context.Context, _, elementID string, frames int, err error) {
	t.log.Debug("Trace finished", zap.String("element", elementID), zap.Int("frames", frames), zap.Error(err))
}
