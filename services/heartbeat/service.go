// Package heartbeat blinks a status output from the clock alarm, so a
// running executor is visible on the board.
package heartbeat

import (
	"io"
	"time"

	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt"
	"devicert-go/types"
)

// Host is the runtime surface the heartbeat needs.
type Host interface {
	Open(loc string) (types.ResourceID, error)
	PollRead(cx *rt.Context, id types.ResourceID, buf []byte) (int, error)
	PollWrite(cx *rt.Context, id types.ResourceID, buf []byte) (int, error)
	PollSeek(cx *rt.Context, id types.ResourceID, offset int64, whence int) (int64, error)
}

type Config struct {
	LED      string        // output pin name, e.g. "pc13"
	Interval time.Duration // default 1s
}

// Service is an rt.Future. It completes only if the clock or LED fails.
type Service struct {
	host     Host
	clock    types.ResourceID
	led      types.ResourceID
	interval int64 // ms
	armed    bool
	on       bool
	beats    uint32
	buf      [8]byte
	log      *zap.Logger
}

func New(host Host, cfg Config, log *zap.Logger) (*Service, error) {
	clock, err := host.Open("event://sys/clock")
	if err != nil {
		return nil, err
	}
	led, err := host.Open("digital://gpio/" + cfg.LED)
	if err != nil {
		return nil, err
	}
	if led.Path.Category != types.OutputPin {
		return nil, errcode.New(errcode.InvalidConfig, "heartbeat.new", cfg.LED+" is not an output")
	}
	iv := cfg.Interval
	if iv <= 0 {
		iv = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		host:     host,
		clock:    clock,
		led:      led,
		interval: int64(iv / time.Millisecond),
		log:      log.Named("heartbeat"),
	}, nil
}

// Beats is the number of toggles so far.
func (s *Service) Beats() uint32 { return s.beats }

func (s *Service) Poll(cx *rt.Context) rt.Poll {
	for {
		if !s.armed {
			if _, err := s.host.PollSeek(cx, s.clock, s.interval, io.SeekCurrent); err != nil {
				s.log.Error("cannot arm clock", zap.Error(err))
				return rt.Ready
			}
			s.armed = true
		}
		_, err := s.host.PollRead(cx, s.clock, s.buf[:])
		if rt.IsPending(err) {
			return rt.Pending
		}
		s.armed = false
		if err != nil {
			s.log.Error("clock read failed", zap.Error(err))
			return rt.Ready
		}
		s.on = !s.on
		level := []byte{0}
		if s.on {
			level[0] = 1
		}
		if _, err := s.host.PollWrite(cx, s.led, level); err != nil {
			s.log.Error("led write failed", zap.Error(err))
			return rt.Ready
		}
		s.beats++
		s.log.Debug("beat", zap.Uint32("n", s.beats), zap.Bool("on", s.on))
	}
}
