package profilemodule

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/capabilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genericSnapshot() *capabilities.Snapshot {
	return capabilities.NewBuilder(capabilities.PlatformGeneric).
		Video("mp4", "h264", capabilities.SupportProbably).
		Video("webm", "vp8", capabilities.SupportProbably).
		Video("webm", "vp9", capabilities.SupportProbably).
		Audio("mp4", "aac", capabilities.SupportProbably).
		Audio("mp4", "mp3", capabilities.SupportProbably).
		Audio("mp4", "flac", capabilities.SupportProbably).
		Audio("webm", "vorbis", capabilities.SupportProbably).
		Audio("webm", "opus", capabilities.SupportProbably).
		MaxChannels(2).
		TextTracks(true).
		OverlayRendering(true).
		MediaSource(true).
		DecodeThreads(4).
		Build()
}

func newTestBuilder(caps *capabilities.Snapshot) *Builder {
	return NewBuilder(hclog.NewNullLogger(), caps)
}

func TestBuildOmitsUnsupportedCodecs(t *testing.T) {
	// No WebM VP9 support and no MP4 HEVC support anywhere.
	caps := capabilities.NewBuilder(capabilities.PlatformGeneric).
		Video("mp4", "h264", capabilities.SupportProbably).
		Video("webm", "vp8", capabilities.SupportProbably).
		Audio("mp4", "aac", capabilities.SupportProbably).
		Audio("webm", "vorbis", capabilities.SupportProbably).
		MaxChannels(2).
		TextTracks(true).
		Build()

	profile := newTestBuilder(caps).Build(BuildOptions{})

	for _, dp := range profile.DirectPlayProfiles {
		assert.NotContains(t, dp.VideoCodec, "vp9")
		assert.NotContains(t, dp.VideoCodec, "hevc")
	}
	for _, cp := range profile.CodecProfiles {
		assert.NotEqual(t, "vp9", cp.Codec)
		assert.NotEqual(t, "hevc", cp.Codec)
	}
}

func TestBuildDirectPlayAccumulation(t *testing.T) {
	profile := newTestBuilder(genericSnapshot()).Build(BuildOptions{})

	var containers []string
	for _, dp := range profile.DirectPlayProfiles {
		if dp.Type == ProfileVideo {
			containers = append(containers, dp.Container)
		}
	}
	assert.Equal(t, []string{"webm", "mp4"}, containers)

	for _, dp := range profile.DirectPlayProfiles {
		if dp.Container == "webm" {
			assert.Equal(t, "vp8,vp9", dp.VideoCodec)
			assert.Equal(t, "vorbis,opus", dp.AudioCodec)
		}
	}
}

func TestBuildDisabledCodecsTakeEffect(t *testing.T) {
	b := newTestBuilder(genericSnapshot())

	profile := b.Build(BuildOptions{DisabledVideoCodecs: []string{"vp9"}})
	for _, dp := range profile.DirectPlayProfiles {
		assert.NotContains(t, dp.VideoCodec, "vp9")
	}

	// Same builder, fresh options: codec reappears. Codec lists are
	// re-evaluated per call.
	profile = b.Build(BuildOptions{})
	found := false
	for _, dp := range profile.DirectPlayProfiles {
		if strings.Contains(dp.VideoCodec, "vp9") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildMaxWidthRewritesConditions(t *testing.T) {
	profile := newTestBuilder(genericSnapshot()).Build(BuildOptions{MaxVideoWidth: 1920})

	for _, cp := range profile.CodecProfiles {
		if cp.Type != ProfileVideo {
			continue
		}
		widthConds := 0
		for _, cond := range cp.Conditions {
			if cond.Property == PropWidth {
				widthConds++
				assert.Equal(t, LessThanEqual, cond.Condition)
				assert.Equal(t, "1920", cond.Value)
			}
		}
		assert.Equal(t, 1, widthConds, "codec %s", cp.Codec)
	}
}

func TestBuildFmp4OnlyOnKnownGoodPlatforms(t *testing.T) {
	hasFmp4Hls := func(p *DeviceProfile) bool {
		for _, tp := range p.TranscodingProfiles {
			if tp.Protocol == "hls" && tp.Container == "mp4" {
				return true
			}
		}
		return false
	}

	generic := newTestBuilder(genericSnapshot()).Build(BuildOptions{PreferFmp4HlsContainer: true})
	assert.True(t, hasFmp4Hls(generic))

	// Preference not set: ts only.
	plain := newTestBuilder(genericSnapshot()).Build(BuildOptions{})
	assert.False(t, hasFmp4Hls(plain))

	webos := capabilities.NewBuilder(capabilities.PlatformWebOS).
		Video("mp4", "h264", capabilities.SupportProbably).
		Audio("mp4", "aac", capabilities.SupportProbably).
		MaxChannels(6).
		Build()
	tv := newTestBuilder(webos).Build(BuildOptions{PreferFmp4HlsContainer: true})
	assert.False(t, hasFmp4Hls(tv), "preference overridden off unless platform is known good")
}

func TestBuildAppleOpusCafQuirk(t *testing.T) {
	caps := capabilities.NewBuilder(capabilities.PlatformApple).
		Video("mp4", "h264", capabilities.SupportProbably).
		Audio("mp4", "aac", capabilities.SupportProbably).
		Audio("mp4", "opus", capabilities.SupportProbably).
		Audio("caf", "opus", capabilities.SupportProbably).
		MaxChannels(2).
		TextTracks(true).
		Build()

	profile := newTestBuilder(caps).Build(BuildOptions{})

	cafEntries := 0
	for _, dp := range profile.DirectPlayProfiles {
		if dp.Container == "caf" {
			cafEntries++
			assert.Equal(t, "opus", dp.AudioCodec)
		}
		if dp.Type == ProfileVideo && dp.Container == "mp4" {
			assert.NotContains(t, dp.AudioCodec, "opus")
		}
	}
	assert.Equal(t, 1, cafEntries)
}

func TestBuildWebOSFlacChannelQuirk(t *testing.T) {
	caps := capabilities.NewBuilder(capabilities.PlatformWebOS).
		Video("mp4", "h264", capabilities.SupportProbably).
		Audio("mp4", "aac", capabilities.SupportProbably).
		Audio("mp4", "flac", capabilities.SupportProbably).
		MaxChannels(6).
		Build()

	profile := newTestBuilder(caps).Build(BuildOptions{})

	var flacProfile *CodecProfile
	for i := range profile.CodecProfiles {
		if profile.CodecProfiles[i].Codec == "flac" {
			flacProfile = &profile.CodecProfiles[i]
		}
	}
	require.NotNil(t, flacProfile)
	require.Len(t, flacProfile.Conditions, 1)
	assert.Equal(t, LessThanEqual, flacProfile.Conditions[0].Condition)
	assert.Equal(t, PropAudioChannels, flacProfile.Conditions[0].Property)
	assert.Equal(t, "2", flacProfile.Conditions[0].Value)
}

func TestBuildDeterministicWithinSession(t *testing.T) {
	b := newTestBuilder(genericSnapshot())
	opts := BuildOptions{MaxVideoWidth: 1280, PreferFmp4HlsContainer: true}

	first, err := json.Marshal(b.Build(opts))
	require.NoError(t, err)
	second, err := json.Marshal(b.Build(opts))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestConditionWireFormat(t *testing.T) {
	cond := ProfileCondition{
		Condition:  LessThanEqual,
		Property:   PropVideoLevel,
		Value:      "120",
		IsRequired: false,
	}
	raw, err := json.Marshal(cond)
	require.NoError(t, err)
	// Field names are a server-side contract.
	assert.JSONEq(t, `{"Condition":"LessThanEqual","Property":"VideoLevel","Value":"120","IsRequired":false}`, string(raw))
}
