// Package capabilities models what the runtime can decode and render. A
// Snapshot is built once at startup and passed explicitly to the profile
// builder and players, so decision code stays testable without touching the
// host environment.
package capabilities

// Support is the result of a decode-support probe, mirroring the
// probably/maybe/"" answer shape of canPlayType-style probes.
type Support string

const (
	SupportProbably Support = "probably"
	SupportMaybe    Support = "maybe"
	SupportNone     Support = ""
)

// Playable reports whether the probe result is good enough to direct play.
func (s Support) Playable() bool {
	return s == SupportProbably || s == SupportMaybe
}

// Platform is the runtime family the client runs on. Platform quirks in the
// profile builder key off this.
type Platform string

const (
	PlatformGeneric Platform = "generic"
	PlatformApple   Platform = "apple"
	PlatformWebOS   Platform = "webos"
	PlatformTizen   Platform = "tizen"
	PlatformAndroid Platform = "android"
)

// Snapshot is an immutable record of runtime playback capabilities.
type Snapshot struct {
	Platform        Platform
	PlatformVersion string

	// videoSupport and audioSupport are keyed "container/codec". An absent
	// key means the combination was never probed and counts as unsupported.
	videoSupport map[string]Support
	audioSupport map[string]Support

	MaxAudioChannels int

	SupportsTextTracks         bool
	SupportsOverlayRendering   bool
	SupportsSecondarySubtitles bool

	SupportsMediaSource bool
	SupportsNativeHls   bool

	SupportsHdr10       bool
	SupportsHlg         bool
	DolbyVisionProfiles []int

	// DecodeThreads bounds worker-based subtitle renderer concurrency.
	DecodeThreads int
}

func key(container, codec string) string {
	return container + "/" + codec
}

// CanPlayVideo reports decode support for a video codec inside a container.
func (s *Snapshot) CanPlayVideo(container, codec string) Support {
	return s.videoSupport[key(container, codec)]
}

// CanPlayAudio reports decode support for an audio codec inside a container.
func (s *Snapshot) CanPlayAudio(container, codec string) Support {
	return s.audioSupport[key(container, codec)]
}

// SupportsDolbyVisionProfile reports whether the given DV profile number is
// decodable.
func (s *Snapshot) SupportsDolbyVisionProfile(profile int) bool {
	for _, p := range s.DolbyVisionProfiles {
		if p == profile {
			return true
		}
	}
	return false
}

// Builder assembles a Snapshot. Used by the prober and by tests that need a
// synthetic runtime.
type Builder struct {
	snap Snapshot
}

// NewBuilder starts an empty snapshot for the given platform.
func NewBuilder(platform Platform) *Builder {
	return &Builder{snap: Snapshot{
		Platform:     platform,
		videoSupport: make(map[string]Support),
		audioSupport: make(map[string]Support),
	}}
}

// Video records a video decode probe result.
func (b *Builder) Video(container, codec string, sup Support) *Builder {
	b.snap.videoSupport[key(container, codec)] = sup
	return b
}

// Audio records an audio decode probe result.
func (b *Builder) Audio(container, codec string, sup Support) *Builder {
	b.snap.audioSupport[key(container, codec)] = sup
	return b
}

// MaxChannels sets the speaker channel count.
func (b *Builder) MaxChannels(n int) *Builder {
	b.snap.MaxAudioChannels = n
	return b
}

// TextTracks marks native text-track rendering support.
func (b *Builder) TextTracks(ok bool) *Builder {
	b.snap.SupportsTextTracks = ok
	return b
}

// OverlayRendering marks custom overlay (canvas-style) rendering support.
func (b *Builder) OverlayRendering(ok bool) *Builder {
	b.snap.SupportsOverlayRendering = ok
	return b
}

// SecondarySubtitles marks multi-subtitle-track rendering support.
func (b *Builder) SecondarySubtitles(ok bool) *Builder {
	b.snap.SupportsSecondarySubtitles = ok
	return b
}

// MediaSource marks MSE-style segmented playback support.
func (b *Builder) MediaSource(ok bool) *Builder {
	b.snap.SupportsMediaSource = ok
	return b
}

// NativeHls marks native HLS playback support.
func (b *Builder) NativeHls(ok bool) *Builder {
	b.snap.SupportsNativeHls = ok
	return b
}

// Hdr sets HDR capability flags.
func (b *Builder) Hdr(hdr10, hlg bool, dvProfiles []int) *Builder {
	b.snap.SupportsHdr10 = hdr10
	b.snap.SupportsHlg = hlg
	b.snap.DolbyVisionProfiles = dvProfiles
	return b
}

// DecodeThreads sets the worker concurrency bound.
func (b *Builder) DecodeThreads(n int) *Builder {
	b.snap.DecodeThreads = n
	return b
}

// Build returns the finished snapshot.
func (b *Builder) Build() *Snapshot {
	snap := b.snap
	return &snap
}
