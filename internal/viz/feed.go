package viz

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/san-kum/bipedsim/internal/dynamo"
	"github.com/san-kum/bipedsim/internal/sim"
)

// Feed hands frames from the simulation goroutine to the UI. Offer never
// blocks: frames arriving while the buffer is full are dropped.
type Feed struct {
	frames  chan sim.Frame
	dropped atomic.Int64

	once sync.Once
	mu   sync.Mutex
	err  error
}

func NewFeed(size int) *Feed {
	if size < 1 {
		size = 1
	}
	return &Feed{frames: make(chan sim.Frame, size)}
}

func (f *Feed) Offer(fr sim.Frame) bool {
	select {
	case f.frames <- fr:
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Close ends the feed with the outcome of the run. Only the first call has
// an effect.
func (f *Feed) Close(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.frames)
	})
}

func (f *Feed) Dropped() int64 { return f.dropped.Load() }

func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

type frameMsg sim.Frame

type doneMsg struct{ err error }

// wait delivers the next frame, or doneMsg once the feed is closed.
func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		fr, ok := <-f.frames
		if !ok {
			return doneMsg{err: f.Err()}
		}
		return frameMsg(fr)
	}
}

// Options control Watch.
type Options struct {
	Info Info
	// Buffer is the feed capacity in frames.
	Buffer int
	// Every offers one frame per Every physics steps.
	Every int
	// Speed paces the simulation at Speed times real time; zero runs it
	// as fast as it goes.
	Speed float64
}

// Watch runs s in a goroutine and shows it on the live dashboard until the
// user quits. Quitting cancels the run.
func Watch(ctx context.Context, s *sim.Simulator, cfg dynamo.Config, opts Options) error {
	if opts.Every < 1 {
		opts.Every = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(opts.Buffer)
	finished := make(chan error, 1)
	go func() {
		start := time.Now()
		err := s.RunWithCallback(ctx, cfg, func(f sim.Frame) bool {
			if f.Step%opts.Every == 0 {
				feed.Offer(f)
			}
			if opts.Speed > 0 {
				wall := time.Duration(f.Time / opts.Speed * float64(time.Second))
				if d := time.Until(start.Add(wall)); d > 0 {
					time.Sleep(d)
				}
			}
			return ctx.Err() == nil
		})
		feed.Close(err)
		finished <- err
	}()

	_, uiErr := tea.NewProgram(NewModel(opts.Info, feed), tea.WithAltScreen()).Run()
	cancel()
	runErr := <-finished
	if uiErr != nil {
		return uiErr
	}
	if errors.Is(runErr, dynamo.ErrContextCanceled) {
		return nil
	}
	return runErr
}
