// Package media defines the item, source and stream metadata the server
// describes playable content with, plus the tick time unit shared across the
// plugin boundary.
package media

// MediaType classifies what kind of content an item is.
type MediaType string

const (
	TypeVideo MediaType = "Video"
	TypeAudio MediaType = "Audio"
	TypePhoto MediaType = "Photo"
	TypeBook  MediaType = "Book"
)

// StreamType classifies an individual stream inside a media source.
type StreamType string

const (
	StreamVideo    StreamType = "Video"
	StreamAudio    StreamType = "Audio"
	StreamSubtitle StreamType = "Subtitle"
)

// DeliveryMethod describes how a subtitle stream reaches the client.
type DeliveryMethod string

const (
	DeliveryEmbed    DeliveryMethod = "Embed"
	DeliveryExternal DeliveryMethod = "External"
	DeliveryHls      DeliveryMethod = "Hls"
	// DeliveryEncode means the subtitle is burned into the video server-side
	// and cannot be rendered (or re-selected) client-side.
	DeliveryEncode DeliveryMethod = "Encode"
)

// PlayMethod describes how the server agreed to serve a source.
type PlayMethod string

const (
	PlayMethodDirectPlay   PlayMethod = "DirectPlay"
	PlayMethodDirectStream PlayMethod = "DirectStream"
	PlayMethodTranscode    PlayMethod = "Transcode"
)

// Item is the server-side description of a playable library entry. Read-only
// once received.
type Item struct {
	ID           string    `json:"Id"`
	Name         string    `json:"Name"`
	Type         string    `json:"Type"`
	MediaType    MediaType `json:"MediaType"`
	SeriesID     string    `json:"SeriesId,omitempty"`
	SeasonID     string    `json:"SeasonId,omitempty"`
	RunTimeTicks int64     `json:"RunTimeTicks,omitempty"`
	Path         string    `json:"Path,omitempty"`
}

// MediaStream is one video, audio or subtitle stream of a source.
type MediaStream struct {
	Index          int            `json:"Index"`
	Type           StreamType     `json:"Type"`
	Codec          string         `json:"Codec"`
	Language       string         `json:"Language,omitempty"`
	Title          string         `json:"Title,omitempty"`
	IsDefault      bool           `json:"IsDefault"`
	IsForced       bool           `json:"IsForced"`
	IsExternal     bool           `json:"IsExternal"`
	DeliveryMethod DeliveryMethod `json:"DeliveryMethod,omitempty"`
	DeliveryURL    string         `json:"DeliveryUrl,omitempty"`

	// Video stream properties.
	Width          int     `json:"Width,omitempty"`
	Height         int     `json:"Height,omitempty"`
	Profile        string  `json:"Profile,omitempty"`
	Level          float64 `json:"Level,omitempty"`
	VideoRange     string  `json:"VideoRange,omitempty"`
	VideoRangeType string  `json:"VideoRangeType,omitempty"`
	IsInterlaced   bool    `json:"IsInterlaced"`
	IsAnamorphic   bool    `json:"IsAnamorphic,omitempty"`

	// Audio stream properties.
	Channels   int `json:"Channels,omitempty"`
	SampleRate int `json:"SampleRate,omitempty"`
	BitRate    int `json:"BitRate,omitempty"`
}

// MediaSource describes one playable rendition of an item.
type MediaSource struct {
	ID                    string        `json:"Id"`
	Path                  string        `json:"Path,omitempty"`
	Protocol              string        `json:"Protocol,omitempty"`
	Container             string        `json:"Container"`
	Size                  int64         `json:"Size,omitempty"`
	Bitrate               int           `json:"Bitrate,omitempty"`
	RunTimeTicks          int64         `json:"RunTimeTicks,omitempty"`
	IsLive                bool          `json:"IsLive,omitempty"`
	SupportsDirectPlay    bool          `json:"SupportsDirectPlay"`
	SupportsDirectStream  bool          `json:"SupportsDirectStream"`
	SupportsTranscoding   bool          `json:"SupportsTranscoding"`
	MediaStreams          []MediaStream `json:"MediaStreams"`
	DefaultAudioIndex     int           `json:"DefaultAudioStreamIndex,omitempty"`
	DefaultSubtitleIndex  int           `json:"DefaultSubtitleStreamIndex,omitempty"`
	TranscodingURL        string        `json:"TranscodingUrl,omitempty"`
	TranscodingContainer  string        `json:"TranscodingContainer,omitempty"`
	TranscodingSubProtocol string       `json:"TranscodingSubProtocol,omitempty"`
}

// StreamsOfType returns the source's streams matching t, in index order.
func (s *MediaSource) StreamsOfType(t StreamType) []MediaStream {
	var out []MediaStream
	for _, st := range s.MediaStreams {
		if st.Type == t {
			out = append(out, st)
		}
	}
	return out
}

// StreamByIndex returns the stream with the given server index, or nil.
func (s *MediaSource) StreamByIndex(index int) *MediaStream {
	for i := range s.MediaStreams {
		if s.MediaStreams[i].Index == index {
			return &s.MediaStreams[i]
		}
	}
	return nil
}

// DefaultSubtitleStream returns the stream selected by
// DefaultSubtitleStreamIndex, or nil when none is selected.
func (s *MediaSource) DefaultSubtitleStream() *MediaStream {
	if s.DefaultSubtitleIndex < 0 {
		return nil
	}
	st := s.StreamByIndex(s.DefaultSubtitleIndex)
	if st == nil || st.Type != StreamSubtitle {
		return nil
	}
	return st
}

// PlayOptions carries everything a plugin needs for one playback session.
// Consumed read-only; a new Play call supersedes the previous options
// entirely.
type PlayOptions struct {
	Item                   *Item
	Items                  []*Item
	MediaSource            *MediaSource
	URL                    string
	MimeType               string
	PlayMethod             PlayMethod
	StartPositionTicks     int64
	TranscodingOffsetTicks int64
	AudioStreamIndex       int
	SubtitleStreamIndex    int
	// SecondarySubtitleStreamIndex is -1 when no secondary track is wanted.
	SecondarySubtitleStreamIndex int
	Fullscreen                   bool
	AspectRatio                  string
	BackdropURL                  string
}

// PlaybackInfoResponse is what the server returns from playback negotiation.
type PlaybackInfoResponse struct {
	MediaSources  []MediaSource `json:"MediaSources"`
	PlaySessionID string        `json:"PlaySessionId"`
	ErrorCode     string        `json:"ErrorCode,omitempty"`
}
