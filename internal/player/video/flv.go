package video

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/player/element"
)

// flvSession is the FLV direct-play attachment, the third source strategy.
// FLV needs a remuxing layer on top of the element the same way HLS does,
// but with no recovery ladder: any fatal error tears the session down.
type flvSession struct {
	logger    hclog.Logger
	el        element.MediaElement
	destroyed bool
}

func newFlvSession(logger hclog.Logger) *flvSession {
	return &flvSession{logger: logger.Named("flv")}
}

func (f *flvSession) attach(el element.MediaElement, url string) error {
	if f.destroyed {
		return fmt.Errorf("flv session already destroyed")
	}
	if err := el.SetSource(url); err != nil {
		return fmt.Errorf("failed to attach flv source: %w", err)
	}
	f.el = el
	f.logger.Debug("flv session attached", "url", url)
	return nil
}

func (f *flvSession) destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	if f.el != nil {
		f.el.RemoveSource()
		f.el = nil
	}
	f.logger.Debug("flv session destroyed")
}
