// Command boardtest cycles the power rails of a board up and down in order,
// reading each output back after it is driven, and reports pass or fail on
// the status led.
package main

import (
	"context"
	_ "embed"
	"io"
	"time"

	"go.uber.org/zap"

	"devicert-go/services/rt"
	"devicert-go/types"
)

//go:embed board.yaml
var boardYAML []byte

// ---------- Configuration ----------

const (
	stepDelayUp   = 300 * time.Millisecond
	stepDelayDown = 300 * time.Millisecond
	dwellUp       = 2 * time.Second
	dwellDown     = 2 * time.Second

	// Cycles: 0 = loop forever
	cyclesToRun = 0

	statusLED = "pc13"
)

// Rails in power-up order.
var powerSeq = []string{"pb0", "pb1", "pb2", "pb3", "pb4", "pb5"}

type step struct {
	after time.Duration
	rail  string
	on    bool
}

// plan expands powerSeq into one cycle: up front to back, dwell, down back
// to front, dwell. The dwell after the last step belongs to the next cycle.
func plan() []step {
	var s []step
	for i, name := range powerSeq {
		d := stepDelayUp
		if i == 0 {
			d = dwellDown
		}
		s = append(s, step{after: d, rail: name, on: true})
	}
	for i := len(powerSeq) - 1; i >= 0; i-- {
		d := stepDelayDown
		if i == len(powerSeq)-1 {
			d = dwellUp
		}
		s = append(s, step{after: d, rail: powerSeq[i], on: false})
	}
	return s
}

// ---------- Sequencer task ----------

type sequencer struct {
	r     *rt.Runtime
	clock types.ResourceID
	led   types.ResourceID
	rails map[string]types.ResourceID
	steps []step

	i      int
	armed  bool
	cycle  int
	misses []string
	buf    [8]byte
	log    *zap.Logger
}

func newSequencer(r *rt.Runtime, log *zap.Logger) (*sequencer, error) {
	s := &sequencer{r: r, rails: map[string]types.ResourceID{}, steps: plan(), log: log}
	var err error
	if s.clock, err = r.Open("event://sys/clock"); err != nil {
		return nil, err
	}
	if s.led, err = r.Open("digital://gpio/" + statusLED); err != nil {
		return nil, err
	}
	for _, name := range powerSeq {
		id, err := r.Open("digital://gpio/" + name)
		if err != nil {
			return nil, err
		}
		s.rails[name] = id
	}
	return s, nil
}

func (s *sequencer) Poll(cx *rt.Context) rt.Poll {
	for {
		if !s.armed {
			ms := int64(s.steps[s.i].after / time.Millisecond)
			if _, err := s.r.PollSeek(cx, s.clock, ms, io.SeekCurrent); err != nil {
				s.log.Error("clock", zap.Error(err))
				return rt.Ready
			}
			s.armed = true
		}
		if _, err := s.r.PollRead(cx, s.clock, s.buf[:]); rt.IsPending(err) {
			return rt.Pending
		} else if err != nil {
			s.log.Error("clock", zap.Error(err))
			return rt.Ready
		}
		s.armed = false

		st := s.steps[s.i]
		s.drive(cx, st)
		s.i++
		if s.i < len(s.steps) {
			continue
		}

		s.i = 0
		s.cycle++
		pass := len(s.misses) == 0
		if pass {
			s.log.Info("PASS: rails toggled and read back", zap.Int("cycle", s.cycle))
		} else {
			s.log.Warn("FAIL: rails did not read back", zap.Int("cycle", s.cycle), zap.Strings("rails", s.misses))
		}
		s.misses = s.misses[:0]
		s.setLED(cx, !pass)
		if cyclesToRun > 0 && s.cycle >= cyclesToRun {
			s.log.Info("completed; halting", zap.Int("cycles", s.cycle))
			return rt.Ready
		}
	}
}

func (s *sequencer) drive(cx *rt.Context, st step) {
	id := s.rails[st.rail]
	want := byte(0)
	if st.on {
		want = 1
	}
	if _, err := s.r.PollWrite(cx, id, []byte{want}); err != nil {
		s.log.Error("rail write", zap.String("rail", st.rail), zap.Error(err))
		s.misses = append(s.misses, st.rail)
		return
	}
	var got [1]byte
	if _, err := s.r.PollRead(cx, id, got[:]); err != nil || got[0] != want {
		s.misses = append(s.misses, st.rail)
		return
	}
	s.log.Info("rail", zap.String("name", st.rail), zap.Bool("on", st.on))
}

// setLED holds the status led on after a failed cycle.
func (s *sequencer) setLED(cx *rt.Context, on bool) {
	v := byte(0)
	if on {
		v = 1
	}
	if _, err := s.r.PollWrite(cx, s.led, []byte{v}); err != nil {
		s.log.Error("status led", zap.Error(err))
	}
}

// ---------- Main ----------

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()
	rt.SetLogger(log)

	cfg, err := rt.ParseBoard(boardYAML)
	if err != nil {
		log.Fatal("board description", zap.Error(err))
	}
	r, err := rt.InitBoard(cfg, rt.DefaultFactories())
	if err != nil {
		log.Fatal("board init", zap.Error(err))
	}
	seq, err := newSequencer(r, log.Named("boardtest"))
	if err != nil {
		log.Fatal("sequencer", zap.Error(err))
	}
	if _, err := r.Spawn(seq); err != nil {
		log.Fatal("spawn", zap.Error(err))
	}
	log.Info("boardtest running", zap.Int("steps", len(seq.steps)))
	r.Run(context.Background())
}
