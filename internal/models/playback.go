package models

// TransportState enumerates audio transport states
type TransportState int

const (
	Idle TransportState = iota
	Loading
	Playing
	Paused
	Ended
	Error
)

func (t TransportState) String() string {
	switch t {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Error:
		return "error"
	default:
		return ""
	}
}

// PlaybackState is the observable state of the playback engine.
//
// CurrentIndex is -1 or a valid index into Queue.
type PlaybackState struct {
	Queue           []Track
	CurrentIndex    int
	Transport       TransportState
	PositionSeconds float64
	DurationSeconds float64
}

// NewPlaybackState returns the empty, idle state.
func NewPlaybackState() PlaybackState {
	return PlaybackState{CurrentIndex: -1, Transport: Idle}
}

// Current returns the track at CurrentIndex.
func (s PlaybackState) Current() (Track, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return Track{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// Clone returns a copy of s with its own queue slice.
func (s PlaybackState) Clone() PlaybackState {
	s.Queue = append([]Track(nil), s.Queue...)
	return s
}

// SearchPhase enumerates the observable phases of a search
type SearchPhase int

const (
	SearchIdle SearchPhase = iota
	SearchSearching
	SearchSettled
)

func (p SearchPhase) String() string {
	switch p {
	case SearchIdle:
		return "idle"
	case SearchSearching:
		return "searching"
	case SearchSettled:
		return "settled"
	default:
		return ""
	}
}

// SearchResults is the observable output of the search pipeline.
type SearchResults struct {
	Phase    SearchPhase
	Query    string
	Sequence uint64
	Tracks   []Track
}
