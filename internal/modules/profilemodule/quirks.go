package profilemodule

import (
	"strings"

	"github.com/kinetra/kinetra/internal/capabilities"
)

// applyPlatformQuirks mutates an already-built profile for platform
// behaviors that do not fit the general derivation: a codec is split out of
// a combined profile into its own entry carrying extra constraints.
func applyPlatformQuirks(profile *DeviceProfile, caps *capabilities.Snapshot) {
	switch caps.Platform {
	case capabilities.PlatformApple:
		splitOpusIntoCaf(profile, caps)
	case capabilities.PlatformWebOS:
		limitFlacChannels(profile)
	}
}

// splitOpusIntoCaf handles Opus on Apple runtimes: Opus decodes only inside
// a CAF container there, so it must not be advertised inside mp4 entries and
// needs its own direct play profile.
func splitOpusIntoCaf(profile *DeviceProfile, caps *capabilities.Snapshot) {
	if !caps.CanPlayAudio("caf", "opus").Playable() {
		return
	}

	hadOpus := false
	for i := range profile.DirectPlayProfiles {
		dp := &profile.DirectPlayProfiles[i]
		if dp.Container == "caf" {
			return // already present
		}
		if dp.Type != ProfileVideo || dp.AudioCodec == "" {
			continue
		}
		codecs := strings.Split(dp.AudioCodec, ",")
		kept := codecs[:0]
		for _, c := range codecs {
			if c == "opus" {
				hadOpus = true
				continue
			}
			kept = append(kept, c)
		}
		dp.AudioCodec = strings.Join(kept, ",")
	}

	if hadOpus {
		profile.DirectPlayProfiles = append(profile.DirectPlayProfiles, DirectPlayProfile{
			Container:  "caf",
			Type:       ProfileAudio,
			AudioCodec: "opus",
		})
	}
}

// limitFlacChannels caps FLAC at stereo on WebOS, whose decoder drops
// multichannel FLAC streams.
func limitFlacChannels(profile *DeviceProfile) {
	supportsFlac := false
	for _, dp := range profile.DirectPlayProfiles {
		if strings.Contains(dp.AudioCodec, "flac") {
			supportsFlac = true
			break
		}
	}
	if !supportsFlac {
		return
	}

	for i := range profile.CodecProfiles {
		if profile.CodecProfiles[i].Codec == "flac" {
			return // constraint already present
		}
	}

	profile.CodecProfiles = append(profile.CodecProfiles, CodecProfile{
		Type:  ProfileVideoAudio,
		Codec: "flac",
		Conditions: []ProfileCondition{
			{Condition: LessThanEqual, Property: PropAudioChannels, Value: "2", IsRequired: false},
		},
	})
}
