package hls

import "github.com/kinetra/kinetra/internal/player/element"

// ErrorType is the coarse category the streaming layer reports.
type ErrorType string

const (
	ErrorTypeNetwork ErrorType = "networkError"
	ErrorTypeMedia   ErrorType = "mediaError"
	ErrorTypeMux     ErrorType = "muxError"
	ErrorTypeOther   ErrorType = "otherError"
)

// ErrorData describes one streaming-layer error occurrence.
type ErrorData struct {
	Type    ErrorType
	Details string
	Fatal   bool

	// ResponseCode is the HTTP status of a failed request, when known.
	ResponseCode int
	// NetworkDown reports that the host had no connectivity at the time of
	// the failure.
	NetworkDown bool
}

// Outcome is the classified result of handling one streaming error.
type Outcome int

const (
	// OutcomeIgnored: non-fatal, the stream self-heals.
	OutcomeIgnored Outcome = iota
	// OutcomeRetried: loading was restarted.
	OutcomeRetried
	// OutcomeRecovered: a bounded media-error recovery rung fired.
	OutcomeRecovered
	// OutcomeServerError: HTTP >= 400, session destroyed, no retry.
	OutcomeServerError
	// OutcomeNetworkError: network down, session destroyed, no retry.
	OutcomeNetworkError
	// OutcomeFatal: recovery exhausted, session destroyed.
	OutcomeFatal
)

// HandleError classifies a streaming error and applies the matching policy:
// server responses >= 400 and a dead network destroy the session immediately
// with no retry; other fatal network errors restart loading a bounded number
// of times; fatal media errors walk the cooldown recovery ladder; everything
// else is left to self-heal.
func (s *Session) HandleError(data ErrorData) Outcome {
	if !data.Fatal {
		s.logger.Debug("non-fatal hls error", "type", data.Type, "details", data.Details)
		return OutcomeIgnored
	}

	switch data.Type {
	case ErrorTypeNetwork:
		if data.ResponseCode >= 400 {
			s.logger.Error("hls request rejected by server", "status", data.ResponseCode)
			s.Destroy()
			return OutcomeServerError
		}
		if data.NetworkDown {
			s.logger.Error("hls load failed with network down")
			s.Destroy()
			return OutcomeNetworkError
		}

		s.mu.Lock()
		retries := s.startRetries
		s.startRetries++
		s.mu.Unlock()
		if retries >= maxStartLoadRetries {
			s.logger.Error("hls load retries exhausted", "details", data.Details)
			s.Destroy()
			return OutcomeFatal
		}
		s.logger.Warn("fatal hls network error, restarting load", "details", data.Details, "attempt", retries+1)
		s.StartLoad()
		return OutcomeRetried

	case ErrorTypeMedia:
		if s.recovery.HandleMediaError(s) == element.RecoveryFatal {
			s.Destroy()
			return OutcomeFatal
		}
		return OutcomeRecovered

	default:
		s.logger.Error("unrecoverable hls error", "type", data.Type, "details", data.Details)
		s.Destroy()
		return OutcomeFatal
	}
}
