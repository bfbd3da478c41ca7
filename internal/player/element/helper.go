package element

import (
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kinetra/kinetra/internal/media"
)

// BufferedToTicks translates surface buffered ranges into tick ranges,
// shifted by the active transcoding offset so positions line up with the
// server's timeline.
func BufferedToTicks(ranges []Range, transcodingOffsetTicks int64) []media.TickRange {
	out := make([]media.TickRange, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, media.TickRange{
			Start: media.MsToTicks(r.StartMs) + transcodingOffsetTicks,
			End:   media.MsToTicks(r.EndMs) + transcodingOffsetTicks,
		})
	}
	return out
}

// PlayWithAutoplayGuard starts playback, swallowing autoplay rejections:
// the user can still resume manually, so these are not playback failures.
func PlayWithAutoplayGuard(logger hclog.Logger, el MediaElement) error {
	err := el.Play()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotAllowed) || errors.Is(err, ErrAborted) {
		logger.Debug("autoplay rejected, waiting for user gesture", "error", err)
		return nil
	}
	return err
}

// SeekOnReady seeks to targetMs as soon as the element's known duration
// covers it. If the duration is still unknown (or too short, e.g. the
// buffer has not grown yet), the seek is deferred until a readiness event
// reports enough duration. The returned cancel function abandons a pending
// deferred seek; it must be called during teardown.
func SeekOnReady(logger hclog.Logger, el MediaElement, targetMs int64, onDone func()) (cancel func()) {
	if targetMs <= 0 {
		if onDone != nil {
			onDone()
		}
		return func() {}
	}

	if dur := el.Duration(); dur > 0 && dur >= targetMs {
		el.SetCurrentTime(targetMs)
		if onDone != nil {
			onDone()
		}
		return func() {}
	}

	logger.Debug("deferring start seek until duration is known", "target_ms", targetMs)

	done := false
	var remove func()
	remove = el.Subscribe(func(ev Event) {
		switch ev.Name {
		case EvDurationChange, EvLoadedData, EvLoadedMetadata, EvPlay:
		default:
			return
		}
		if done {
			return
		}
		if dur := el.Duration(); dur > 0 && dur >= targetMs {
			done = true
			el.SetCurrentTime(targetMs)
			remove()
			if onDone != nil {
				onDone()
			}
		}
	})

	return func() {
		if !done {
			done = true
			remove()
		}
	}
}

// ClampVolume bounds a volume to the valid 0..1 range.
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// VolumeStore persists the user's volume across sessions.
type VolumeStore interface {
	SaveVolume(v float64) error
	LoadVolume() (float64, bool)
}

// ApplySavedVolume restores the persisted volume onto a fresh surface.
func ApplySavedVolume(el MediaElement, store VolumeStore) {
	if store == nil {
		return
	}
	if v, ok := store.LoadVolume(); ok {
		el.SetVolume(ClampVolume(v))
	}
}

// HlsController is the recovery surface of an HLS session the error
// dispatcher drives.
type HlsController interface {
	StartLoad()
	RecoverMediaError()
	SwapAudioCodec()
	Destroy()
}

// RecoveryAction is the outcome of a media-error recovery attempt.
type RecoveryAction int

const (
	RecoveryAttempted RecoveryAction = iota
	RecoveryFatal
)

const recoveryCooldown = 3 * time.Second

// HlsRecovery tracks decode-error recovery attempts for one playback
// session. State is per session: a fresh session starts with a clean
// cooldown window.
type HlsRecovery struct {
	logger hclog.Logger
	now    func() time.Time

	lastDecodeRecovery time.Time
	lastCodecSwap      time.Time
}

// NewHlsRecovery creates recovery state for one session.
func NewHlsRecovery(logger hclog.Logger) *HlsRecovery {
	return &HlsRecovery{logger: logger.Named("hls-recovery"), now: time.Now}
}

// HandleMediaError runs the bounded decode-error recovery ladder: plain
// decode recovery first, then audio codec swap plus decode recovery, then
// fatal. Each rung fires at most once per cooldown window.
func (r *HlsRecovery) HandleMediaError(c HlsController) RecoveryAction {
	now := r.now()

	if r.lastDecodeRecovery.IsZero() || now.Sub(r.lastDecodeRecovery) > recoveryCooldown {
		r.lastDecodeRecovery = now
		r.logger.Warn("media decode error, attempting recovery")
		c.RecoverMediaError()
		return RecoveryAttempted
	}

	if r.lastCodecSwap.IsZero() || now.Sub(r.lastCodecSwap) > recoveryCooldown {
		r.lastCodecSwap = now
		r.logger.Warn("decode recovery insufficient, swapping audio codec")
		c.SwapAudioCodec()
		c.RecoverMediaError()
		return RecoveryAttempted
	}

	r.logger.Error("media error unrecoverable after bounded attempts")
	return RecoveryFatal
}
