package capabilities

import (
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// ProbeOptions are operator-supplied overrides applied on top of the probed
// baseline. Zero values mean "no override".
type ProbeOptions struct {
	ForcePlatform    Platform
	MaxAudioChannels int
	DisableHdr       bool
}

// Probe inspects the host once and produces the capabilities snapshot used
// for the rest of the process lifetime. Probe failures degrade to
// conservative defaults; they never abort startup.
func Probe(logger hclog.Logger, opts ProbeOptions) *Snapshot {
	logger = logger.Named("capabilities")

	platform, version := detectPlatform(logger)
	if opts.ForcePlatform != "" {
		platform = opts.ForcePlatform
	}

	b := NewBuilder(platform)
	b.snap.PlatformVersion = version

	applyDecodeBaseline(b, platform)

	b.MaxChannels(detectChannelCount(platform, opts))
	b.DecodeThreads(detectDecodeThreads(logger))

	// Text-track and overlay rendering are universally available in the
	// rendering surface we target; secondary tracks are not on legacy TVs.
	b.TextTracks(true)
	b.OverlayRendering(true)
	b.SecondarySubtitles(platform != PlatformWebOS && platform != PlatformTizen)

	b.MediaSource(true)
	b.NativeHls(platform == PlatformApple)

	if !opts.DisableHdr {
		applyHdrBaseline(b, platform)
	}

	snap := b.Build()
	logger.Info("capability snapshot built",
		"platform", snap.Platform,
		"max_audio_channels", snap.MaxAudioChannels,
		"native_hls", snap.SupportsNativeHls,
		"secondary_subtitles", snap.SupportsSecondarySubtitles)
	return snap
}

func detectPlatform(logger hclog.Logger) (Platform, string) {
	info, err := host.Info()
	if err != nil {
		logger.Warn("host probe failed, assuming generic platform", "error", err)
		return PlatformGeneric, ""
	}

	switch {
	case info.OS == "darwin":
		return PlatformApple, info.PlatformVersion
	case strings.Contains(info.Platform, "webos"):
		return PlatformWebOS, info.PlatformVersion
	case strings.Contains(info.Platform, "tizen"):
		return PlatformTizen, info.PlatformVersion
	case info.OS == "android":
		return PlatformAndroid, info.PlatformVersion
	default:
		return PlatformGeneric, info.PlatformVersion
	}
}

// detectChannelCount picks the speaker channel budget. TV platforms commonly
// report passthrough-capable receivers; desktops default to stereo unless
// the operator overrides.
func detectChannelCount(platform Platform, opts ProbeOptions) int {
	if opts.MaxAudioChannels > 0 {
		return opts.MaxAudioChannels
	}
	switch platform {
	case PlatformWebOS, PlatformTizen:
		return 6
	default:
		return 2
	}
}

func detectDecodeThreads(logger hclog.Logger) int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		logger.Warn("cpu probe failed, assuming single decode thread", "error", err)
		return 1
	}
	// Leave headroom for the player itself on small machines.
	if vm, err := mem.VirtualMemory(); err == nil && vm.Total < 2<<30 && count > 2 {
		return 2
	}
	if count > 4 {
		return 4
	}
	return count
}

// applyDecodeBaseline fills the container/codec support table for the
// platform. The table is the Go-side stand-in for per-combination runtime
// probes: entries absent here are treated as unsupported everywhere else.
func applyDecodeBaseline(b *Builder, platform Platform) {
	// Common baseline shared by every platform we target.
	b.Video("mp4", "h264", SupportProbably)
	b.Audio("mp4", "aac", SupportProbably)
	b.Audio("mp4", "mp3", SupportProbably)
	b.Video("webm", "vp8", SupportProbably)
	b.Audio("webm", "vorbis", SupportProbably)
	b.Video("ts", "h264", SupportMaybe)
	b.Audio("ts", "aac", SupportMaybe)

	switch platform {
	case PlatformApple:
		b.Video("mp4", "hevc", SupportProbably)
		b.Audio("mp4", "ac3", SupportProbably)
		b.Audio("mp4", "eac3", SupportProbably)
		b.Audio("mp4", "alac", SupportProbably)
		b.Audio("caf", "opus", SupportProbably)
		b.Audio("mp4", "flac", SupportMaybe)
	case PlatformWebOS, PlatformTizen:
		b.Video("mp4", "hevc", SupportProbably)
		b.Video("mkv", "h264", SupportProbably)
		b.Video("mkv", "hevc", SupportProbably)
		b.Audio("mp4", "ac3", SupportProbably)
		b.Audio("mp4", "eac3", SupportProbably)
		b.Audio("mkv", "dts", SupportMaybe)
		b.Audio("mp4", "flac", SupportProbably)
		b.Audio("webm", "opus", SupportProbably)
	default:
		b.Video("webm", "vp9", SupportProbably)
		b.Video("webm", "av1", SupportMaybe)
		b.Video("mp4", "av1", SupportMaybe)
		b.Audio("webm", "opus", SupportProbably)
		b.Audio("mp4", "opus", SupportMaybe)
		b.Audio("mp4", "flac", SupportProbably)
	}
}

func applyHdrBaseline(b *Builder, platform Platform) {
	switch platform {
	case PlatformApple:
		b.Hdr(true, true, []int{5, 8, 10})
	case PlatformWebOS, PlatformTizen:
		b.Hdr(true, true, []int{5, 8})
	default:
		b.Hdr(false, false, nil)
	}
}
