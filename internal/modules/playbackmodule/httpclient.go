package playbackmodule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
	"github.com/kinetra/kinetra/internal/modules/profilemodule"
)

// HTTPClient talks to the media server's REST API. It implements
// ServerClient.
type HTTPClient struct {
	logger  hclog.Logger
	baseURL string
	http    *http.Client
}

func NewHTTPClient(logger hclog.Logger, baseURL string) *HTTPClient {
	return &HTTPClient{
		logger:  logger.Named("server-client"),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Item(ctx context.Context, itemID string) (*media.Item, error) {
	var item media.Item
	err := c.getJSON(ctx, fmt.Sprintf("%s/Items/%s", c.baseURL, itemID), &item)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}
	return &item, nil
}

func (c *HTTPClient) PlaybackInfo(ctx context.Context, itemID string, profile *profilemodule.DeviceProfile) (*media.PlaybackInfoResponse, error) {
	body, err := json.Marshal(map[string]any{"DeviceProfile": profile})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/Items/%s/PlaybackInfo", c.baseURL, itemID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("playback negotiation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("playback negotiation failed: status %d", resp.StatusCode)
	}

	var info media.PlaybackInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode playback info: %w", err)
	}
	return &info, nil
}

// StreamURL builds the final stream URL for a negotiated source. Transcoded
// sources carry a server-relative URL; direct sources stream by id.
func (c *HTTPClient) StreamURL(source *media.MediaSource) string {
	if source.TranscodingURL != "" {
		return c.baseURL + source.TranscodingURL
	}
	container := source.Container
	if i := strings.IndexByte(container, ','); i >= 0 {
		container = container[:i]
	}
	return fmt.Sprintf("%s/Videos/%s/stream.%s?static=true&mediaSourceId=%s",
		c.baseURL, source.ID, container, source.ID)
}

// getJSON fetches url into out, retrying transient failures.
func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("server error: status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("unexpected status %d", resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying request", "url", url, "attempt", n+1, "error", err)
		}),
	)
}
