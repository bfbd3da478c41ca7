package subtitles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// HTTPCueFetcher pulls delivered subtitle tracks from the server's JSON
// track-event format.
type HTTPCueFetcher struct {
	logger hclog.Logger
	http   *http.Client
}

func NewHTTPCueFetcher(logger hclog.Logger) *HTTPCueFetcher {
	return &HTTPCueFetcher{
		logger: logger.Named("cue-fetcher"),
		http:   &http.Client{Timeout: 15 * time.Second},
	}
}

type trackEvent struct {
	StartPositionTicks int64  `json:"StartPositionTicks"`
	EndPositionTicks   int64  `json:"EndPositionTicks"`
	Text               string `json:"Text"`
}

type trackData struct {
	TrackEvents []trackEvent `json:"TrackEvents"`
}

func (f *HTTPCueFetcher) FetchCues(ctx context.Context, url string) ([]Cue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subtitle track: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch subtitle track: status %d", resp.StatusCode)
	}

	var data trackData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode subtitle track: %w", err)
	}

	cues := make([]Cue, 0, len(data.TrackEvents))
	for _, ev := range data.TrackEvents {
		cues = append(cues, Cue{
			StartTicks: ev.StartPositionTicks,
			EndTicks:   ev.EndPositionTicks,
			Text:       ev.Text,
		})
	}
	f.logger.Debug("subtitle track fetched", "url", url, "cues", len(cues))
	return cues, nil
}

// ServerFontProvider serves the fallback font list styled renderers load
// when a track's embedded fonts are incomplete.
type ServerFontProvider struct {
	baseURL string
	http    *http.Client
}

func NewServerFontProvider(baseURL string) *ServerFontProvider {
	return &ServerFontProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *ServerFontProvider) FallbackFonts(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/FallbackFont/Fonts", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list fallback fonts: status %d", resp.StatusCode)
	}

	var fonts []struct {
		Name string `json:"Name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fonts); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(fonts))
	for _, f := range fonts {
		urls = append(urls, fmt.Sprintf("%s/FallbackFont/Fonts/%s", p.baseURL, f.Name))
	}
	return urls, nil
}

// asyncWorker drains posted messages on its own goroutine, standing in for
// the out-of-process rendering worker.
type asyncWorker struct {
	msgs chan any
	done chan struct{}
}

func (w *asyncWorker) Post(msg any) {
	select {
	case w.msgs <- msg:
	case <-w.done:
	}
}

func (w *asyncWorker) Terminate() {
	close(w.done)
}

// AsyncSpawner creates goroutine-backed workers.
type AsyncSpawner struct{}

func NewAsyncSpawner() *AsyncSpawner { return &AsyncSpawner{} }

func (AsyncSpawner) Spawn(kind string) (Worker, error) {
	w := &asyncWorker{
		msgs: make(chan any, 16),
		done: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-w.msgs:
			case <-w.done:
				return
			}
		}
	}()
	return w, nil
}
