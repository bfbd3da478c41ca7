package profilemodule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
)

// Builder derives device profiles from the injected capabilities snapshot.
// Build is a pure function of the snapshot and options: probe results are
// memoized in the snapshot, codec lists are re-derived on every call so
// settings changes apply on the next playback.
type Builder struct {
	logger hclog.Logger
	caps   *capabilities.Snapshot
}

// NewBuilder creates a device profile builder.
func NewBuilder(logger hclog.Logger, caps *capabilities.Snapshot) *Builder {
	return &Builder{
		logger: logger.Named("device-profile"),
		caps:   caps,
	}
}

const (
	defaultMaxStreamingBitrate = 120_000_000
	defaultMaxStaticBitrate    = 100_000_000
	defaultMusicBitrate        = 384_000
)

// Build produces the negotiation document for one playback session.
func (b *Builder) Build(opts BuildOptions) *DeviceProfile {
	profile := &DeviceProfile{
		MaxStreamingBitrate:              orDefault(opts.MaxStreamingBitrate, defaultMaxStreamingBitrate),
		MaxStaticBitrate:                 orDefault(opts.MaxStaticBitrate, defaultMaxStaticBitrate),
		MusicStreamingTranscodingBitrate: orDefault(opts.MusicStreamingTranscodingBitrate, defaultMusicBitrate),
	}

	videoCodecs := b.supportedVideoCodecs(opts)
	audioCodecs := b.supportedAudioCodecs(opts)

	profile.DirectPlayProfiles = b.buildDirectPlayProfiles(videoCodecs, audioCodecs)
	profile.TranscodingProfiles = b.buildTranscodingProfiles(videoCodecs, opts)
	profile.CodecProfiles = b.buildCodecProfiles(videoCodecs, opts)
	profile.SubtitleProfiles = b.buildSubtitleProfiles()
	profile.ResponseProfiles = []ResponseProfile{
		{Type: ProfileVideo, Container: "m4v", MimeType: "video/mp4"},
	}

	applyPlatformQuirks(profile, b.caps)

	if opts.MaxVideoWidth > 0 {
		capProfileWidth(profile, opts.MaxVideoWidth)
	}

	b.logger.Debug("device profile built",
		"direct_play", len(profile.DirectPlayProfiles),
		"transcoding", len(profile.TranscodingProfiles),
		"codec_profiles", len(profile.CodecProfiles))
	return profile
}

// supportedVideoCodecs returns the per-container direct-playable video codec
// lists, freshly evaluated so disabled-codec settings take effect per call.
func (b *Builder) supportedVideoCodecs(opts BuildOptions) map[string][]string {
	candidates := map[string][]string{
		"mp4":  {"h264", "hevc", "av1"},
		"webm": {"vp8", "vp9", "av1"},
		"mkv":  {"h264", "hevc", "vp9", "av1"},
		"ts":   {"h264"},
	}

	out := make(map[string][]string, len(candidates))
	for container, codecs := range candidates {
		for _, codec := range codecs {
			if isDisabled(codec, opts.DisabledVideoCodecs) {
				continue
			}
			if b.caps.CanPlayVideo(container, codec).Playable() {
				out[container] = append(out[container], codec)
			}
		}
	}
	return out
}

func (b *Builder) supportedAudioCodecs(opts BuildOptions) map[string][]string {
	candidates := map[string][]string{
		"mp4":  {"aac", "mp3", "opus", "flac", "alac", "ac3", "eac3"},
		"webm": {"vorbis", "opus"},
		"mkv":  {"aac", "mp3", "opus", "flac", "ac3", "eac3"},
		"caf":  {"opus"},
		"ts":   {"aac", "mp3"},
	}
	if opts.EnableDts {
		candidates["mkv"] = append(candidates["mkv"], "dts", "dca")
	}
	if opts.EnableTrueHd {
		candidates["mkv"] = append(candidates["mkv"], "truehd")
	}

	out := make(map[string][]string, len(candidates))
	for container, codecs := range candidates {
		for _, codec := range codecs {
			if isDisabled(codec, opts.DisabledAudioCodecs) {
				continue
			}
			if b.caps.CanPlayAudio(container, codec).Playable() {
				out[container] = append(out[container], codec)
			}
		}
	}
	return out
}

// buildDirectPlayProfiles accumulates one video entry per playable container
// plus standalone audio entries. Containers with no playable video codec are
// simply omitted.
func (b *Builder) buildDirectPlayProfiles(video, audio map[string][]string) []DirectPlayProfile {
	var profiles []DirectPlayProfile

	for _, container := range []string{"webm", "mp4", "mkv", "ts"} {
		codecs := video[container]
		if len(codecs) == 0 {
			continue
		}
		profiles = append(profiles, DirectPlayProfile{
			Container:  container,
			Type:       ProfileVideo,
			VideoCodec: strings.Join(codecs, ","),
			AudioCodec: strings.Join(audio[container], ","),
		})
	}

	for _, entry := range []struct {
		container string
		codec     string
	}{
		{"mp3", "mp3"},
		{"aac", "aac"},
		{"m4a", "aac"},
		{"flac", "flac"},
		{"ogg", "vorbis"},
		{"caf", "opus"},
	} {
		if b.caps.CanPlayAudio(entry.container, entry.codec).Playable() ||
			b.caps.CanPlayAudio("mp4", entry.codec).Playable() {
			profiles = append(profiles, DirectPlayProfile{
				Container:  entry.container,
				Type:       ProfileAudio,
				AudioCodec: entry.codec,
			})
		}
	}

	return profiles
}

// buildTranscodingProfiles declares the formats the server may fall back to,
// ordered by preference. fMP4 HLS is only requested when the user opted in
// and the platform is known to handle it.
func (b *Builder) buildTranscodingProfiles(video map[string][]string, opts BuildOptions) []TranscodingProfile {
	var profiles []TranscodingProfile

	profiles = append(profiles, TranscodingProfile{
		Container:        "aac",
		Type:             ProfileAudio,
		AudioCodec:       "aac",
		Protocol:         "hls",
		Context:          "Streaming",
		MaxAudioChannels: strconv.Itoa(b.caps.MaxAudioChannels),
	})
	profiles = append(profiles, TranscodingProfile{
		Container:        "mp3",
		Type:             ProfileAudio,
		AudioCodec:       "mp3",
		Context:          "Streaming",
		Protocol:         "http",
		MaxAudioChannels: strconv.Itoa(b.caps.MaxAudioChannels),
	})

	hlsVideo := intersect(video["mp4"], []string{"h264", "hevc"})
	if len(hlsVideo) == 0 {
		hlsVideo = []string{"h264"}
	}

	if opts.PreferFmp4HlsContainer && fmp4HlsKnownGood(b.caps.Platform) {
		profiles = append(profiles, TranscodingProfile{
			Container:           "mp4",
			Type:                ProfileVideo,
			VideoCodec:          strings.Join(hlsVideo, ","),
			AudioCodec:          "aac,mp3",
			Protocol:            "hls",
			Context:             "Streaming",
			MaxAudioChannels:    strconv.Itoa(b.caps.MaxAudioChannels),
			MinSegments:         2,
			BreakOnNonKeyFrames: b.caps.Platform == capabilities.PlatformApple,
		})
	}

	profiles = append(profiles, TranscodingProfile{
		Container:           "ts",
		Type:                ProfileVideo,
		VideoCodec:          "h264",
		AudioCodec:          "aac,mp3",
		Protocol:            "hls",
		Context:             "Streaming",
		MaxAudioChannels:    strconv.Itoa(b.caps.MaxAudioChannels),
		MinSegments:         1,
		BreakOnNonKeyFrames: b.caps.Platform == capabilities.PlatformApple,
	})

	profiles = append(profiles, TranscodingProfile{
		Container:  "mp4",
		Type:       ProfileVideo,
		VideoCodec: "h264",
		AudioCodec: "aac,mp3",
		Protocol:   "http",
		Context:    "Static",
	})

	return profiles
}

// buildCodecProfiles bounds the parameter space of each playable codec. Only
// codecs that survived the support probe get a profile, so the document can
// never carry allow-conditions for an unplayable codec.
func (b *Builder) buildCodecProfiles(video map[string][]string, opts BuildOptions) []CodecProfile {
	playable := make(map[string]bool)
	for _, codecs := range video {
		for _, c := range codecs {
			playable[c] = true
		}
	}

	var profiles []CodecProfile

	if playable["h264"] {
		profiles = append(profiles, CodecProfile{
			Type:  ProfileVideo,
			Codec: "h264",
			Conditions: []ProfileCondition{
				{Condition: NotEquals, Property: PropIsAnamorphic, Value: "true", IsRequired: false},
				{Condition: EqualsAny, Property: PropVideoProfile, Value: "high|main|baseline|constrained baseline", IsRequired: false},
				{Condition: NotEquals, Property: PropIsInterlaced, Value: "true", IsRequired: false},
				{Condition: LessThanEqual, Property: PropVideoLevel, Value: "52", IsRequired: false},
			},
		})
	}

	if playable["hevc"] {
		profiles = append(profiles, CodecProfile{
			Type:  ProfileVideo,
			Codec: "hevc",
			Conditions: []ProfileCondition{
				{Condition: NotEquals, Property: PropIsAnamorphic, Value: "true", IsRequired: false},
				{Condition: EqualsAny, Property: PropVideoProfile, Value: "main|main 10", IsRequired: false},
				{Condition: NotEquals, Property: PropIsInterlaced, Value: "true", IsRequired: false},
				{Condition: LessThanEqual, Property: PropVideoLevel, Value: "183", IsRequired: false},
				{Condition: EqualsAny, Property: PropVideoRangeType, Value: b.supportedVideoRangeTypes(), IsRequired: false},
			},
		})
	}

	if playable["vp9"] {
		profiles = append(profiles, CodecProfile{
			Type:  ProfileVideo,
			Codec: "vp9",
			Conditions: []ProfileCondition{
				{Condition: EqualsAny, Property: PropVideoRangeType, Value: b.supportedVideoRangeTypes(), IsRequired: false},
			},
		})
	}

	if playable["av1"] {
		profiles = append(profiles, CodecProfile{
			Type:  ProfileVideo,
			Codec: "av1",
			Conditions: []ProfileCondition{
				{Condition: NotEquals, Property: PropIsInterlaced, Value: "true", IsRequired: false},
				{Condition: LessThanEqual, Property: PropVideoLevel, Value: "19", IsRequired: false},
			},
		})
	}

	profiles = append(profiles, CodecProfile{
		Type:  ProfileVideoAudio,
		Codec: "aac",
		Conditions: []ProfileCondition{
			{Condition: LessThanEqual, Property: PropAudioChannels, Value: strconv.Itoa(b.caps.MaxAudioChannels), IsRequired: false},
		},
	})

	return profiles
}

// supportedVideoRangeTypes enumerates the dynamic-range tags acceptable to
// this runtime, pipe-joined for an EqualsAny condition.
func (b *Builder) supportedVideoRangeTypes() string {
	ranges := []string{"SDR"}
	if b.caps.SupportsHdr10 {
		ranges = append(ranges, "HDR10")
	}
	if b.caps.SupportsHlg {
		ranges = append(ranges, "HLG")
	}
	for _, p := range b.caps.DolbyVisionProfiles {
		switch p {
		case 5:
			ranges = append(ranges, "DOVI")
		case 8:
			ranges = append(ranges, "DOVIWithHDR10")
		case 10:
			ranges = append(ranges, "DOVIWithSDR")
		}
	}
	return strings.Join(ranges, "|")
}

func (b *Builder) buildSubtitleProfiles() []SubtitleProfile {
	var profiles []SubtitleProfile

	if b.caps.SupportsTextTracks {
		profiles = append(profiles,
			SubtitleProfile{Format: "vtt", Method: SubtitleExternal},
			SubtitleProfile{Format: "subrip", Method: SubtitleExternal},
			SubtitleProfile{Format: "srt", Method: SubtitleExternal},
		)
	}
	if b.caps.SupportsOverlayRendering {
		profiles = append(profiles,
			SubtitleProfile{Format: "ass", Method: SubtitleExternal},
			SubtitleProfile{Format: "ssa", Method: SubtitleExternal},
		)
		if b.caps.DecodeThreads > 1 {
			profiles = append(profiles, SubtitleProfile{Format: "pgssub", Method: SubtitleEmbed})
		} else {
			profiles = append(profiles, SubtitleProfile{Format: "pgssub", Method: SubtitleEncode})
		}
	} else {
		profiles = append(profiles,
			SubtitleProfile{Format: "ass", Method: SubtitleEncode},
			SubtitleProfile{Format: "ssa", Method: SubtitleEncode},
			SubtitleProfile{Format: "pgssub", Method: SubtitleEncode},
		)
	}
	profiles = append(profiles, SubtitleProfile{Format: "dvdsub", Method: SubtitleEncode})

	return profiles
}

// capProfileWidth rewrites or inserts a Width condition in every video codec
// profile so the server never picks a rendition wider than the cap.
func capProfileWidth(profile *DeviceProfile, maxWidth int) {
	value := strconv.Itoa(maxWidth)
	for i := range profile.CodecProfiles {
		cp := &profile.CodecProfiles[i]
		if cp.Type != ProfileVideo {
			continue
		}
		replaced := false
		for j := range cp.Conditions {
			if cp.Conditions[j].Property == PropWidth {
				cp.Conditions[j].Condition = LessThanEqual
				cp.Conditions[j].Value = value
				replaced = true
			}
		}
		if !replaced {
			cp.Conditions = append(cp.Conditions, ProfileCondition{
				Condition:  LessThanEqual,
				Property:   PropWidth,
				Value:      value,
				IsRequired: false,
			})
		}
	}
}

func fmp4HlsKnownGood(p capabilities.Platform) bool {
	return p == capabilities.PlatformApple || p == capabilities.PlatformGeneric
}

func isDisabled(codec string, disabled []string) bool {
	for _, d := range disabled {
		if strings.EqualFold(d, codec) {
			return true
		}
	}
	return false
}

func intersect(a, b []string) []string {
	var out []string
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
			}
		}
	}
	return out
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// Describe returns a short human-readable summary used by the control API.
func Describe(p *DeviceProfile) string {
	return fmt.Sprintf("%d direct-play, %d transcoding, %d codec profiles",
		len(p.DirectPlayProfiles), len(p.TranscodingProfiles), len(p.CodecProfiles))
}
