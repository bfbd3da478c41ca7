// Package hls implements the JS-side HLS controller analog: a session that
// owns one segmented-stream attachment to a media element and classifies
// streaming errors into bounded recovery or typed fatal outcomes.
package hls

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/player/element"
)

// SessionState tracks the attachment lifecycle.
type SessionState int

const (
	StateCreated SessionState = iota
	StateAttached
	StateLoading
	StateDestroyed
)

func (s SessionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAttached:
		return "attached"
	case StateLoading:
		return "loading"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// maxStartLoadRetries bounds self-recovery for non-fatal load hiccups.
// Fatal network errors never retry at all.
const maxStartLoadRetries = 2

// Session drives one HLS playback attachment. It is created fresh per
// playback session, so recovery cooldowns never leak between sessions.
type Session struct {
	logger   hclog.Logger
	recovery *element.HlsRecovery

	mu             sync.Mutex
	el             element.MediaElement
	url            string
	state          SessionState
	startRetries   int
	swappedCodec   bool
	loadStartCount int
}

// NewSession creates an unattached session.
func NewSession(logger hclog.Logger) *Session {
	l := logger.Named("hls")
	return &Session{
		logger:   l,
		recovery: element.NewHlsRecovery(l),
		state:    StateCreated,
	}
}

// Attach binds the session to a media element.
func (s *Session) Attach(el element.MediaElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return fmt.Errorf("hls session already destroyed")
	}
	s.el = el
	s.state = StateAttached
	return nil
}

// LoadSource points the attached element at the stream URL and begins
// loading.
func (s *Session) LoadSource(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAttached && s.state != StateLoading {
		return fmt.Errorf("hls session not attached (state %s)", s.state)
	}
	if err := s.el.SetSource(url); err != nil {
		return fmt.Errorf("failed to set hls source: %w", err)
	}
	s.url = url
	s.state = StateLoading
	s.loadStartCount++
	return nil
}

// URL returns the currently loaded stream URL.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// State reports the session lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartLoad restarts fragment loading after a transient stall.
func (s *Session) StartLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return
	}
	s.loadStartCount++
	s.logger.Debug("restarting hls load", "url", s.url)
}

// RecoverMediaError re-primes the decode pipeline after a media error.
func (s *Session) RecoverMediaError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return
	}
	s.logger.Debug("recovering hls media error")
	if s.el != nil && s.url != "" {
		// Re-assign the source to flush the decode pipeline.
		_ = s.el.SetSource(s.url)
	}
}

// SwapAudioCodec toggles the preferred audio codec before the next recovery
// attempt, for streams whose audio track trips the decoder.
func (s *Session) SwapAudioCodec() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swappedCodec = !s.swappedCodec
	s.logger.Debug("swapping hls audio codec", "swapped", s.swappedCodec)
}

// Destroy detaches from the element and releases the session. Idempotent.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDestroyed {
		return
	}
	if s.el != nil {
		s.el.RemoveSource()
	}
	s.el = nil
	s.url = ""
	s.state = StateDestroyed
	s.logger.Debug("hls session destroyed")
}

// LoadStartCount reports how many times loading was (re)started.
func (s *Session) LoadStartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStartCount
}

// RewriteLiveURL rewrites a master playlist URL to its live variant, used
// for non-seekable live transcodes on platforms with native HLS handling.
// URLs without a master playlist segment pass through unchanged.
func RewriteLiveURL(url string) string {
	return strings.Replace(url, "master.m3u8", "live.m3u8", 1)
}
