// Package serial implements the UART byte-stream resource (Bus scheme).
package serial

import (
	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt/internal/core"
	"devicert-go/services/rt/internal/hw"
	"devicert-go/services/rt/internal/locator"
	"devicert-go/services/rt/internal/rtlog"
	"devicert-go/types"
)

type Params struct {
	Name   string // "usart1".."usart3"
	Baud   uint32
	Format types.SerialFormat
}

// Serial reads from the port's receive buffer and writes what the port
// accepts. A line fault reported through HandleEvent is returned once by
// the next read.
type Serial struct {
	core.Base
	path  locator.RawPath
	port  hw.UART
	index int
	fault error
	log   *zap.Logger
}

func New(p Params, port hw.UART) (*Serial, error) {
	path := locator.Serial(p.Name)
	s := &Serial{
		path:  path,
		port:  port,
		index: locator.SerialIndex(path.Key),
		log:   rtlog.Named("serial").With(zap.String("port", path.Key)),
	}
	if f, ok := port.(hw.UARTFormatter); ok {
		if p.Baud != 0 {
			f.SetBaudRate(p.Baud)
		}
		if p.Format != (types.SerialFormat{}) {
			if err := f.SetFormat(p.Format); err != nil {
				return nil, errcode.Wrap(errcode.InvalidConfig, "serial.new", err)
			}
		}
	}
	return s, nil
}

func (s *Serial) Path() locator.RawPath { return s.path }

// Index is the 0-based port number (usart1 is 0), the Source of its events.
func (s *Serial) Index() int { return s.index }

func (s *Serial) RxEvent() types.Event    { return types.SerialRxEvent(s.index) }
func (s *Serial) TxEvent() types.Event    { return types.SerialTxEvent(s.index) }
func (s *Serial) FaultEvent() types.Event { return types.SerialFaultEvent(s.index) }

func (s *Serial) PollRead(cfg core.Config, buf []byte) (int, error) {
	const op = "serial.read"
	if cfg.Scheme != types.Bus {
		return 0, core.Unsupported(op, cfg.Scheme)
	}
	if err := s.fault; err != nil {
		s.fault = nil
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	if s.port.Buffered() == 0 {
		return 0, s.waitRx(cfg)
	}
	n, err := s.port.Read(buf)
	if err != nil {
		return n, errcode.Wrap(errcode.IOError, op, err)
	}
	if n == 0 {
		return 0, s.waitRx(cfg)
	}
	return n, nil
}

// waitRx parks a reader on data or a line fault, whichever comes first.
func (s *Serial) waitRx(cfg core.Config) error {
	_ = cfg.WaitFor(s.FaultEvent())
	return cfg.WaitFor(s.RxEvent())
}

func (s *Serial) PollWrite(cfg core.Config, buf []byte) (int, error) {
	const op = "serial.write"
	if cfg.Scheme != types.Bus {
		return 0, core.Unsupported(op, cfg.Scheme)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := s.port.Write(buf)
	if err != nil {
		return n, errcode.Wrap(errcode.IOError, op, err)
	}
	if n == 0 {
		return 0, cfg.WaitFor(s.TxEvent())
	}
	return n, nil
}

func (s *Serial) HandleEvent(ev types.Event) {
	if ev == s.FaultEvent() {
		s.log.Warn("line fault")
		s.fault = errcode.New(errcode.IOError, "serial.read", "line fault on "+s.path.Key)
	}
}
