// package playback drives an audio transport through a play queue.
//
// [Engine] owns the queue, the current index and the transport state. Every load bumps a
// generation counter; completions and transport callbacks from an older generation are ignored.
package playback

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Listener receives callbacks for a single load. Transports must not hold their own locks while calling it.
type Listener interface {
	Progress(position, duration float64)
	Ended()
	Failed(err error)
}

// Transport is the audio output. Load starts playback of src once it is ready.
type Transport interface {
	Load(ctx context.Context, src string, l Listener) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
}

// StreamResolver maps a track to a playable stream location.
type StreamResolver interface {
	StreamURL(track models.Track) (string, error)
}

// anyGeneration matches whichever load is current. Real generations start at 1.
const anyGeneration uint64 = 0

// Engine is the playback state machine.
type Engine struct {
	transport Transport
	resolver  StreamResolver
	logger    *log.Logger
	hub       *shared.Hub[models.PlaybackState]

	mu         sync.Mutex
	state      models.PlaybackState
	gen        uint64
	cancelLoad context.CancelFunc
	lastErr    error
}

// NewEngine creates an idle [Engine] with an empty queue.
func NewEngine(t Transport, r StreamResolver, logger *log.Logger) *Engine {
	return &Engine{
		transport: t,
		resolver:  r,
		logger:    shared.WithLogger(logger, "component", "playback"),
		hub:       shared.NewHub[models.PlaybackState](),
		state:     models.NewPlaybackState(),
	}
}

// Play replaces the queue and starts track. The queue defaults to just track.
//
// When track is not in queue, the first queued track plays. If another Play starts before this
// one finishes loading, this call returns [shared.ErrSuperseded] and leaves no trace.
func (e *Engine) Play(ctx context.Context, track models.Track, queue ...models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}
	if len(queue) == 0 {
		queue = []models.Track{track}
	}

	idx := models.IndexOf(queue, track)
	if idx < 0 {
		idx = 0
	}
	return e.playAt(ctx, append([]models.Track(nil), queue...), idx)
}

// playAt loads queue[idx] under a new generation. queue must not be shared with the caller.
func (e *Engine) playAt(ctx context.Context, queue []models.Track, idx int) error {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	if e.cancelLoad != nil {
		e.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	e.cancelLoad = cancel

	e.state = models.PlaybackState{Queue: queue, CurrentIndex: idx, Transport: models.Loading}
	e.lastErr = nil
	e.publish()
	e.mu.Unlock()

	track := queue[idx]
	src, err := e.resolver.StreamURL(track)
	if err == nil {
		err = e.transport.Load(loadCtx, src, &boundListener{engine: e, gen: gen})
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		e.logger.Debug("load superseded", "url", track.URL, "gen", gen, "current", e.gen)
		return fmt.Errorf("%w: %s", shared.ErrSuperseded, track.URL)
	}

	if err != nil {
		e.state.Transport = models.Error
		e.lastErr = err
		e.publish()
		e.logger.Error("load failed", "url", track.URL, "error", err)
		return fmt.Errorf("%w: %w", shared.ErrPlayback, err)
	}

	// The listener may have reported a fault or the end of the track while Load was running.
	switch e.state.Transport {
	case models.Error:
		return fmt.Errorf("%w: %w", shared.ErrPlayback, e.lastErr)
	case models.Loading:
	default:
		return nil
	}

	e.state.Transport = models.Playing
	e.publish()
	e.logger.Info("playing", "title", track.Title, "artist", track.Artist, "index", idx, "queue", len(queue))
	return nil
}

// TogglePlay pauses when playing, resumes when paused and restarts an ended track.
// It does nothing when no track is selected or the transport is idle, loading or failed.
func (e *Engine) TogglePlay(ctx context.Context) error {
	e.mu.Lock()
	if e.state.CurrentIndex == -1 {
		e.mu.Unlock()
		return nil
	}

	gen := e.gen
	var op func(context.Context) error
	switch e.state.Transport {
	case models.Playing:
		e.state.Transport = models.Paused
		op = e.transport.Pause
	case models.Paused:
		e.state.Transport = models.Playing
		op = e.transport.Play
	case models.Ended:
		e.state.Transport = models.Playing
		e.state.PositionSeconds = 0
		op = e.restart
	default:
		e.mu.Unlock()
		return nil
	}
	e.publish()
	e.mu.Unlock()

	if err := op(ctx); err != nil {
		return e.fail(gen, err)
	}
	return nil
}

func (e *Engine) restart(ctx context.Context) error {
	if err := e.transport.Seek(ctx, 0); err != nil {
		return err
	}
	return e.transport.Play(ctx)
}

// Seek moves to fraction of the track duration. fraction is clamped to [0, 1].
// It does nothing unless the transport is playing or paused.
func (e *Engine) Seek(ctx context.Context, fraction float64) error {
	fraction = clamp(fraction, 0, 1)

	e.mu.Lock()
	if e.state.Transport != models.Playing && e.state.Transport != models.Paused {
		e.mu.Unlock()
		return nil
	}
	gen := e.gen
	position := fraction * e.state.DurationSeconds
	e.state.PositionSeconds = position
	e.publish()
	e.mu.Unlock()

	if err := e.transport.Seek(ctx, position); err != nil {
		return e.fail(gen, err)
	}
	return nil
}

// OnProgress records the transport position for the current load.
func (e *Engine) OnProgress(position, duration float64) {
	e.progress(anyGeneration, position, duration)
}

func (e *Engine) progress(gen uint64, position, duration float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != anyGeneration && gen != e.gen {
		return
	}
	switch e.state.Transport {
	case models.Idle, models.Ended, models.Error:
		return
	}

	duration = clamp(duration, 0, math.MaxFloat64)
	e.state.DurationSeconds = duration
	e.state.PositionSeconds = clamp(position, 0, duration)
	e.publish()
}

// OnEnded advances to the next queued track, or stops at the end of the queue with the last track selected.
// It does nothing unless a track is loading, playing or paused.
func (e *Engine) OnEnded(ctx context.Context) error {
	return e.ended(ctx, anyGeneration)
}

func (e *Engine) ended(ctx context.Context, gen uint64) error {
	e.mu.Lock()
	if gen != anyGeneration && gen != e.gen {
		e.mu.Unlock()
		return nil
	}
	switch e.state.Transport {
	case models.Loading, models.Playing, models.Paused:
	default:
		e.mu.Unlock()
		return nil
	}

	// Advancing by index matches a lookup of the current URL because the queue is only ever
	// replaced by playAt or appended to by Enqueue, so CurrentIndex always names the playing entry.
	idx := e.state.CurrentIndex
	if idx >= 0 && idx+1 < len(e.state.Queue) {
		queue := append([]models.Track(nil), e.state.Queue...)
		e.mu.Unlock()
		return e.playAt(ctx, queue, idx+1)
	}

	e.state.Transport = models.Ended
	e.publish()
	e.mu.Unlock()

	if err := e.transport.Pause(ctx); err != nil {
		e.logger.Warn("pause at end of queue failed", "error", err)
	}
	return nil
}

// OnTransportError moves to the error state. The engine stays usable; the next Play recovers.
func (e *Engine) OnTransportError(err error) error {
	return e.fail(anyGeneration, err)
}

func (e *Engine) fail(gen uint64, err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != anyGeneration && gen != e.gen {
		e.logger.Debug("ignoring error from superseded load", "error", err)
		return fmt.Errorf("%w: %w", shared.ErrSuperseded, err)
	}

	e.state.Transport = models.Error
	e.lastErr = err
	e.publish()
	e.logger.Error("transport error", "error", err)
	return fmt.Errorf("%w: %w", shared.ErrPlayback, err)
}

// Next plays the track after the current one, if any.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	idx := e.state.CurrentIndex
	if idx < 0 || idx+1 >= len(e.state.Queue) {
		e.mu.Unlock()
		return nil
	}
	queue := append([]models.Track(nil), e.state.Queue...)
	e.mu.Unlock()

	return e.playAt(ctx, queue, idx+1)
}

// Previous plays the track before the current one. On the first track it restarts it instead.
func (e *Engine) Previous(ctx context.Context) error {
	e.mu.Lock()
	idx := e.state.CurrentIndex
	if idx < 0 {
		e.mu.Unlock()
		return nil
	}
	queue := append([]models.Track(nil), e.state.Queue...)

	if idx > 0 {
		e.mu.Unlock()
		return e.playAt(ctx, queue, idx-1)
	}

	switch e.state.Transport {
	case models.Playing, models.Paused, models.Ended:
		gen := e.gen
		e.state.Transport = models.Playing
		e.state.PositionSeconds = 0
		e.publish()
		e.mu.Unlock()

		if err := e.restart(ctx); err != nil {
			return e.fail(gen, err)
		}
		return nil
	default:
		e.mu.Unlock()
		return e.playAt(ctx, queue, 0)
	}
}

// Enqueue appends tracks to the end of the queue without changing the current track.
func (e *Engine) Enqueue(tracks ...models.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := 0
	for _, t := range tracks {
		if t.Validate() != nil {
			continue
		}
		e.state.Queue = append(e.state.Queue, t)
		added++
	}
	if added > 0 {
		e.publish()
	}
}

// State returns a copy of the playback state.
func (e *Engine) State() models.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Subscribe streams playback state changes.
func (e *Engine) Subscribe() (<-chan models.PlaybackState, func()) {
	return e.hub.Subscribe()
}

// publish notifies subscribers. Caller holds e.mu.
func (e *Engine) publish() {
	e.hub.Publish(e.state.Clone())
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return min(max(v, lo), hi)
}

// boundListener forwards transport callbacks for one generation.
type boundListener struct {
	engine *Engine
	gen    uint64
}

func (l *boundListener) Progress(position, duration float64) {
	l.engine.progress(l.gen, position, duration)
}

func (l *boundListener) Ended() {
	if err := l.engine.ended(context.Background(), l.gen); err != nil {
		l.engine.logger.Warn("advancing queue failed", "error", err)
	}
}

func (l *boundListener) Failed(err error) {
	l.engine.fail(l.gen, err)
}
