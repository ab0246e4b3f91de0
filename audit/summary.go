package audit

import (
	"math"
	"time"

	"go.uber.org/zap/zapcore"
)

// Summary contains run statistics. All times are in seconds.
type Summary struct {
	Streams   int // Number of listed streams
	Findings  int // Findings produced
	Passed    int // Findings with StatusPassed
	Failed    int // Findings with StatusFailed
	Submitted int // Findings accepted by the sink
	Rejected  int // Findings the sink failed to accept

	ExecTime float64 // Total run time

	start time.Time
}

// add records one submitted finding and its result.
func (s *Summary) add(f *Finding, r Result) {
	s.Findings++
	if f.Status == StatusPassed {
		s.Passed++
	} else {
		s.Failed++
	}
	if r.OK() {
		s.Submitted++
	} else {
		s.Rejected++
	}
}

// done stops the run timer and rounds ExecTime to the nearest millisecond.
func (s *Summary) done(now time.Time) {
	s.ExecTime = math.Round(now.Sub(s.start).Seconds()*1e3) / 1e3
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s *Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("streams", s.Streams)
	enc.AddInt("findings", s.Findings)
	enc.AddInt("passed", s.Passed)
	enc.AddInt("failed", s.Failed)
	enc.AddInt("submitted", s.Submitted)
	enc.AddInt("rejected", s.Rejected)
	enc.AddFloat64("exec_time", s.ExecTime)
	return nil
}
