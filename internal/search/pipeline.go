// package search turns keystrokes into catalog results.
//
// [Pipeline] debounces input, drops queries that are too short, and discards any response
// that is not for the most recent query.
package search

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// MinQueryLength is the shortest normalized query, in runes, that is sent to the catalog.
const MinQueryLength = 3

// Searcher looks up tracks in the remote catalog.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Track, error)
}

// Pipeline owns the current [models.SearchResults].
type Pipeline struct {
	searcher Searcher
	debounce time.Duration
	timeout  time.Duration
	logger   *log.Logger
	hub      *shared.Hub[models.SearchResults]

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool

	results models.SearchResults
}

// NewPipeline creates an idle [Pipeline].
//
// A debounce of 0 dispatches on every qualifying input. A non-positive timeout leaves requests unbounded.
func NewPipeline(s Searcher, debounce, timeout time.Duration, logger *log.Logger) *Pipeline {
	ctx, stop := context.WithCancel(context.Background())
	return &Pipeline{
		searcher: s,
		debounce: debounce,
		timeout:  timeout,
		logger:   shared.WithLogger(logger, "component", "search"),
		hub:      shared.NewHub[models.SearchResults](),
		ctx:      ctx,
		stop:     stop,
		results:  models.SearchResults{Phase: models.SearchIdle},
	}
}

// Input records the latest query text.
//
// Every call takes a new sequence number, so any response still outstanding becomes stale.
func (p *Pipeline) Input(query string) {
	q := shared.NormalizeQuery(query)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.seq++
	seq := p.seq
	p.stopTimer()

	if utf8.RuneCountInString(q) < MinQueryLength {
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
		p.set(models.SearchResults{Phase: models.SearchIdle, Query: q, Sequence: seq})
		return
	}

	p.set(models.SearchResults{Phase: models.SearchSearching, Query: q, Sequence: seq})

	p.wg.Add(1)
	if p.debounce <= 0 {
		go p.dispatch(seq, q)
		return
	}
	p.timer = time.AfterFunc(p.debounce, func() { p.dispatch(seq, q) })
}

// stopTimer disarms a pending debounce. Caller holds p.mu.
func (p *Pipeline) stopTimer() {
	if p.timer == nil {
		return
	}
	if p.timer.Stop() {
		p.wg.Done()
	}
	p.timer = nil
}

func (p *Pipeline) dispatch(seq uint64, q string) {
	defer p.wg.Done()

	p.mu.Lock()
	if p.closed || seq != p.seq {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
	} else {
		ctx, cancel = context.WithCancel(p.ctx)
	}
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Debug("dispatching search", "query", q, "seq", seq)
	tracks, err := p.searcher.Search(ctx, q)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || seq != p.seq {
		p.logger.Debug("discarding stale search response", "query", q, "seq", seq, "current", p.seq)
		return
	}
	p.cancel = nil

	if err != nil {
		p.logger.Warn("search failed", "query", q, "error", err)
		tracks = nil
	}

	p.set(models.SearchResults{Phase: models.SearchSettled, Query: q, Sequence: seq, Tracks: Normalize(tracks)})
}

// set replaces the results and notifies subscribers. Caller holds p.mu.
func (p *Pipeline) set(r models.SearchResults) {
	p.results = r
	p.hub.Publish(cloneResults(r))
}

// Results returns the current results.
func (p *Pipeline) Results() models.SearchResults {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneResults(p.results)
}

// Subscribe streams every change to the results.
func (p *Pipeline) Subscribe() (<-chan models.SearchResults, func()) {
	return p.hub.Subscribe()
}

// Close stops the debounce timer, cancels in-flight requests and waits for them to return.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stopTimer()
	p.stop()
	p.mu.Unlock()

	p.wg.Wait()
	p.hub.Close()
}

// Normalize drops tracks without a URL and keeps only the first occurrence of each URL.
func Normalize(tracks []models.Track) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if t.URL == "" {
			continue
		}
		if _, ok := seen[t.URL]; ok {
			continue
		}
		seen[t.URL] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cloneResults(r models.SearchResults) models.SearchResults {
	if r.Tracks != nil {
		r.Tracks = append([]models.Track{}, r.Tracks...)
	}
	return r
}
