// Package element abstracts the native playback surface a player plugin
// drives. Players never touch the surface concurrently; all mutation goes
// through the owning plugin's methods.
package element

import (
	"errors"
	"sync"
)

// Playback surface event names, mirroring the native media element
// vocabulary the players key their state machines off.
type EventName string

const (
	EvPlaying        EventName = "playing"
	EvPause          EventName = "pause"
	EvEnded          EventName = "ended"
	EvTimeUpdate     EventName = "timeupdate"
	EvDurationChange EventName = "durationchange"
	EvLoadedData     EventName = "loadeddata"
	EvLoadedMetadata EventName = "loadedmetadata"
	EvPlay           EventName = "play"
	EvVolumeChange   EventName = "volumechange"
	EvWaiting        EventName = "waiting"
	EvSeeked         EventName = "seeked"
	EvError          EventName = "error"
)

// Native media error codes surfaced with EvError.
const (
	// ErrCodeAborted is the benign "fetch aborted by the user" case and
	// must never surface as a playback error.
	ErrCodeAborted      = 1
	ErrCodeNetwork      = 2
	ErrCodeDecode       = 3
	ErrCodeNotSupported = 4
)

// Playback start rejections the autoplay guard downgrades to non-fatal.
var (
	ErrNotAllowed = errors.New("playback not allowed without user gesture")
	ErrAborted    = errors.New("playback request aborted")
)

// Event is one surface occurrence. ErrorCode is set only for EvError.
type Event struct {
	Name      EventName
	ErrorCode int
}

// Listener receives surface events.
type Listener func(Event)

// Range is a buffered span in element milliseconds.
type Range struct {
	StartMs int64
	EndMs   int64
}

// MediaElement is the native playback surface contract. Times are
// milliseconds; tick conversion happens in the plugin layer.
type MediaElement interface {
	SetSource(url string) error
	Source() string
	RemoveSource()

	Play() error
	Pause()
	Paused() bool

	CurrentTime() int64
	SetCurrentTime(ms int64)
	Duration() int64
	Buffered() []Range

	SetVolume(v float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool

	SetPlaybackRate(rate float64)
	PlaybackRate() float64

	VideoSize() (width, height int)

	// Subscribe attaches a listener and returns its removal function.
	// Every subscriber must be removed during teardown.
	Subscribe(l Listener) (remove func())
}

// Fake is an in-memory MediaElement for tests and headless operation.
// Events are fired manually via Fire.
type Fake struct {
	mu        sync.Mutex
	src       string
	paused    bool
	curMs     int64
	durMs     int64
	buffered  []Range
	volume    float64
	muted     bool
	rate      float64
	width     int
	height    int
	listeners map[int]Listener
	nextID    int

	// PlayErr, when set, is returned by the next Play call.
	PlayErr error
}

// NewFake creates a fake surface with sane defaults.
func NewFake() *Fake {
	return &Fake{
		paused:    true,
		volume:    1,
		rate:      1,
		listeners: make(map[int]Listener),
	}
}

func (f *Fake) SetSource(url string) error {
	f.mu.Lock()
	f.src = url
	f.curMs = 0
	f.mu.Unlock()
	return nil
}

func (f *Fake) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src
}

func (f *Fake) RemoveSource() {
	f.mu.Lock()
	f.src = ""
	f.durMs = 0
	f.buffered = nil
	f.mu.Unlock()
}

func (f *Fake) Play() error {
	f.mu.Lock()
	err := f.PlayErr
	if err == nil {
		f.paused = false
	}
	f.mu.Unlock()
	return err
}

func (f *Fake) Pause() {
	f.mu.Lock()
	f.paused = true
	f.mu.Unlock()
	f.Fire(Event{Name: EvPause})
}

func (f *Fake) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *Fake) CurrentTime() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.curMs
}

func (f *Fake) SetCurrentTime(ms int64) {
	f.mu.Lock()
	f.curMs = ms
	f.mu.Unlock()
	f.Fire(Event{Name: EvSeeked})
}

func (f *Fake) Duration() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.durMs
}

// SetDuration updates the known duration and fires durationchange.
func (f *Fake) SetDuration(ms int64) {
	f.mu.Lock()
	f.durMs = ms
	f.mu.Unlock()
	f.Fire(Event{Name: EvDurationChange})
}

func (f *Fake) Buffered() []Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Range, len(f.buffered))
	copy(out, f.buffered)
	return out
}

// SetBuffered replaces the buffered ranges.
func (f *Fake) SetBuffered(ranges []Range) {
	f.mu.Lock()
	f.buffered = ranges
	f.mu.Unlock()
}

func (f *Fake) SetVolume(v float64) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
	f.Fire(Event{Name: EvVolumeChange})
}

func (f *Fake) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *Fake) SetMuted(muted bool) {
	f.mu.Lock()
	f.muted = muted
	f.mu.Unlock()
	f.Fire(Event{Name: EvVolumeChange})
}

func (f *Fake) Muted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted
}

func (f *Fake) SetPlaybackRate(rate float64) {
	f.mu.Lock()
	f.rate = rate
	f.mu.Unlock()
}

func (f *Fake) PlaybackRate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *Fake) VideoSize() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

// SetVideoSize updates the reported frame dimensions.
func (f *Fake) SetVideoSize(w, h int) {
	f.mu.Lock()
	f.width = w
	f.height = h
	f.mu.Unlock()
}

func (f *Fake) Subscribe(l Listener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// ListenerCount reports attached listeners; tests use it to prove teardown
// removed everything.
func (f *Fake) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// Fire dispatches an event to all listeners.
func (f *Fake) Fire(ev Event) {
	f.mu.Lock()
	ls := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}
