// Package profilemodule builds the device profile sent to the media server
// to negotiate playback. The JSON field names and the Conditions vocabulary
// are a wire contract with the server and must not drift.
package profilemodule

// ConditionOperator is the comparison applied by a ProfileCondition. The
// operator set is fixed vocabulary understood by the server.
type ConditionOperator string

const (
	LessThanEqual ConditionOperator = "LessThanEqual"
	EqualsAny     ConditionOperator = "EqualsAny"
	NotEquals     ConditionOperator = "NotEquals"
)

// Condition property names understood by the server.
const (
	PropVideoLevel     = "VideoLevel"
	PropVideoProfile   = "VideoProfile"
	PropVideoRangeType = "VideoRangeType"
	PropVideoBitrate   = "VideoBitrate"
	PropWidth          = "Width"
	PropHeight         = "Height"
	PropIsAnamorphic   = "IsAnamorphic"
	PropIsInterlaced   = "IsInterlaced"
	PropAudioChannels  = "AudioChannels"
	PropAudioBitrate   = "AudioBitrate"
)

// ProfileCondition constrains when a codec or container entry applies.
type ProfileCondition struct {
	Condition  ConditionOperator `json:"Condition"`
	Property   string            `json:"Property"`
	Value      string            `json:"Value"`
	IsRequired bool              `json:"IsRequired"`
}

// ProfileType distinguishes video and audio entries.
type ProfileType string

const (
	ProfileVideo      ProfileType = "Video"
	ProfileAudio      ProfileType = "Audio"
	ProfileVideoAudio ProfileType = "VideoAudio"
)

// DirectPlayProfile declares a container/codec combination the client can
// play without server-side conversion. Codec lists are comma-separated, as
// the server expects.
type DirectPlayProfile struct {
	Container  string      `json:"Container"`
	Type       ProfileType `json:"Type"`
	VideoCodec string      `json:"VideoCodec,omitempty"`
	AudioCodec string      `json:"AudioCodec,omitempty"`
}

// TranscodingProfile declares a format the server may transcode into.
type TranscodingProfile struct {
	Container           string      `json:"Container"`
	Type                ProfileType `json:"Type"`
	VideoCodec          string      `json:"VideoCodec,omitempty"`
	AudioCodec          string      `json:"AudioCodec,omitempty"`
	Protocol            string      `json:"Protocol,omitempty"`
	Context             string      `json:"Context"`
	MaxAudioChannels    string      `json:"MaxAudioChannels,omitempty"`
	MinSegments         int         `json:"MinSegments,omitempty"`
	BreakOnNonKeyFrames bool        `json:"BreakOnNonKeyFrames,omitempty"`
}

// ContainerProfile constrains an entire container independent of codec.
type ContainerProfile struct {
	Type       ProfileType        `json:"Type"`
	Container  string             `json:"Container"`
	Conditions []ProfileCondition `json:"Conditions,omitempty"`
}

// CodecProfile bounds the acceptable parameter space of one codec. The
// server consults these conditions when deciding compatibility.
type CodecProfile struct {
	Type       ProfileType        `json:"Type"`
	Codec      string             `json:"Codec,omitempty"`
	Container  string             `json:"Container,omitempty"`
	Conditions []ProfileCondition `json:"Conditions"`
}

// SubtitleDeliveryMethod is how a subtitle format should be delivered.
type SubtitleDeliveryMethod string

const (
	SubtitleExternal SubtitleDeliveryMethod = "External"
	SubtitleEmbed    SubtitleDeliveryMethod = "Embed"
	SubtitleEncode   SubtitleDeliveryMethod = "Encode"
	SubtitleHls      SubtitleDeliveryMethod = "Hls"
)

// SubtitleProfile declares how one subtitle format is handled.
type SubtitleProfile struct {
	Format string                 `json:"Format"`
	Method SubtitleDeliveryMethod `json:"Method"`
}

// ResponseProfile overrides the mime type reported for a container.
type ResponseProfile struct {
	Type      ProfileType `json:"Type"`
	Container string      `json:"Container"`
	MimeType  string      `json:"MimeType"`
}

// DeviceProfile is the complete negotiation document. Immutable after
// construction; built once per playback session.
type DeviceProfile struct {
	MaxStreamingBitrate              int                  `json:"MaxStreamingBitrate,omitempty"`
	MaxStaticBitrate                 int                  `json:"MaxStaticBitrate,omitempty"`
	MusicStreamingTranscodingBitrate int                  `json:"MusicStreamingTranscodingBitrate,omitempty"`
	DirectPlayProfiles               []DirectPlayProfile  `json:"DirectPlayProfiles"`
	TranscodingProfiles              []TranscodingProfile `json:"TranscodingProfiles"`
	ContainerProfiles                []ContainerProfile   `json:"ContainerProfiles"`
	CodecProfiles                    []CodecProfile       `json:"CodecProfiles"`
	SubtitleProfiles                 []SubtitleProfile    `json:"SubtitleProfiles"`
	ResponseProfiles                 []ResponseProfile    `json:"ResponseProfiles"`
}

// BuildOptions carry caller-supplied overrides for one build. User settings
// feed these so a toggle takes effect on the next playback without restart.
type BuildOptions struct {
	MaxStreamingBitrate              int
	MaxStaticBitrate                 int
	MusicStreamingTranscodingBitrate int

	// MaxVideoWidth caps accepted video width; 0 means uncapped.
	MaxVideoWidth int

	// PreferFmp4HlsContainer requests fragmented-mp4 HLS segments. Honored
	// only on platforms known to handle fMP4 HLS correctly.
	PreferFmp4HlsContainer bool

	DisabledVideoCodecs []string
	DisabledAudioCodecs []string

	EnableDts    bool
	EnableTrueHd bool
}
