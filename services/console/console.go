// Package console is a line-oriented command task over a serial resource.
// It reads commands such as "read percent://pwm/pa1" from the port, runs
// them against the runtime and writes one reply line per command.
package console

import (
	"bytes"
	"encoding/binary"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/shlex"
	"go.uber.org/zap"

	"devicert-go/errcode"
	"devicert-go/services/rt"
	"devicert-go/types"
)

const (
	maxLine = 128
	prompt  = "> "
)

const helpText = `commands:
  list                       installed resources
  read <locator>             read once (waits for events)
  write <locator> <value>    decimal for digital/percent/analog, text for bus
  seek <locator> <ms> [abs]  arm the clock alarm
  help`

// Host is the runtime surface the console drives.
type Host interface {
	Open(loc string) (types.ResourceID, error)
	Resources() []string
	PollRead(cx *rt.Context, id types.ResourceID, buf []byte) (int, error)
	PollWrite(cx *rt.Context, id types.ResourceID, buf []byte) (int, error)
	PollSeek(cx *rt.Context, id types.ResourceID, offset int64, whence int) (int64, error)
}

// Console is an rt.Future that never completes.
type Console struct {
	host Host
	port types.ResourceID
	log  *zap.Logger

	rbuf  [64]byte
	line  []byte
	out   []byte
	op    func(cx *rt.Context) error // command waiting on its resource
	opBuf [128]byte
}

// New opens portLocator, which must use the bus scheme.
func New(host Host, portLocator string, log *zap.Logger) (*Console, error) {
	id, err := host.Open(portLocator)
	if err != nil {
		return nil, err
	}
	if id.Scheme != types.Bus {
		return nil, errcode.New(errcode.InvalidInput, "console.new", "port must use bus://")
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Console{host: host, port: id, log: log.Named("console")}
	c.out = append(c.out, prompt...)
	return c, nil
}

func (c *Console) Poll(cx *rt.Context) rt.Poll {
	for {
		if len(c.out) > 0 {
			n, err := c.host.PollWrite(cx, c.port, c.out)
			if rt.IsPending(err) {
				return rt.Pending
			}
			if err != nil {
				c.log.Warn("reply dropped", zap.Error(err))
				n = len(c.out)
			}
			c.out = append(c.out[:0], c.out[n:]...)
			continue
		}
		if c.op != nil {
			err := c.op(cx)
			if rt.IsPending(err) {
				return rt.Pending
			}
			c.op = nil
			if err != nil {
				c.fail(err)
			}
			c.reply(prompt)
			continue
		}
		if line, ok := c.takeLine(); ok {
			c.exec(line)
			if c.op == nil {
				c.reply(prompt)
			}
			continue
		}
		n, err := c.host.PollRead(cx, c.port, c.rbuf[:])
		if rt.IsPending(err) {
			return rt.Pending
		}
		if err != nil {
			c.fail(err)
			continue
		}
		c.line = append(c.line, c.rbuf[:n]...)
		if len(c.line) > maxLine && bytes.IndexByte(c.line, '\n') < 0 {
			c.line = c.line[:0]
			c.fail(errcode.New(errcode.InvalidInput, "console", "line too long"))
		}
	}
}

func (c *Console) takeLine() (string, bool) {
	i := bytes.IndexByte(c.line, '\n')
	if i < 0 {
		return "", false
	}
	s := strings.TrimRight(string(c.line[:i]), "\r")
	c.line = append(c.line[:0], c.line[i+1:]...)
	return s, true
}

func (c *Console) reply(s string)   { c.out = append(c.out, s...) }
func (c *Console) println(s string) { c.reply(s + "\r\n") }

func (c *Console) fail(err error) {
	c.log.Debug("command failed", zap.Error(err))
	c.println("error: " + err.Error())
}

func usage(cmd string) error {
	return errcode.New(errcode.InvalidInput, cmd, "usage: see help")
}

func (c *Console) exec(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		c.fail(errcode.Wrap(errcode.InvalidInput, "console", err))
		return
	}
	if len(args) == 0 {
		return
	}
	c.log.Debug("command", zap.Strings("args", args))

	switch args[0] {
	case "help":
		for _, l := range strings.Split(helpText, "\n") {
			c.println(l)
		}
	case "list":
		for _, l := range c.host.Resources() {
			c.println(l)
		}
	case "read":
		if len(args) != 2 {
			c.fail(usage("read"))
			return
		}
		c.startRead(args[1])
	case "write":
		if len(args) != 3 {
			c.fail(usage("write"))
			return
		}
		c.startWrite(args[1], args[2])
	case "seek":
		if len(args) < 3 || len(args) > 4 || (len(args) == 4 && args[3] != "abs") {
			c.fail(usage("seek"))
			return
		}
		c.startSeek(args[1], args[2], len(args) == 4)
	default:
		c.fail(errcode.New(errcode.InvalidInput, "console", "unknown command "+strconv.Quote(args[0])))
	}
}

func (c *Console) startRead(loc string) {
	id, err := c.host.Open(loc)
	if err != nil {
		c.fail(err)
		return
	}
	c.op = func(cx *rt.Context) error {
		n, err := c.host.PollRead(cx, id, c.opBuf[:])
		if err != nil {
			return err
		}
		c.println("ok " + format(loc, id.Scheme, c.opBuf[:n]))
		return nil
	}
}

func (c *Console) startWrite(loc, value string) {
	id, err := c.host.Open(loc)
	if err != nil {
		c.fail(err)
		return
	}
	payload, err := encode(id.Scheme, value)
	if err != nil {
		c.fail(err)
		return
	}
	c.op = func(cx *rt.Context) error {
		n, err := c.host.PollWrite(cx, id, payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
		if len(payload) > 0 {
			// Partial bus write: keep going on the next poll.
			return c.op(cx)
		}
		c.println("ok")
		return nil
	}
}

func (c *Console) startSeek(loc, ms string, abs bool) {
	id, err := c.host.Open(loc)
	if err != nil {
		c.fail(err)
		return
	}
	off, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		c.fail(errcode.Wrap(errcode.InvalidInput, "seek", err))
		return
	}
	whence := io.SeekCurrent
	if abs {
		whence = io.SeekStart
	}
	c.op = func(cx *rt.Context) error {
		at, err := c.host.PollSeek(cx, id, off, whence)
		if err != nil {
			return err
		}
		c.println("ok " + strconv.FormatInt(at, 10))
		return nil
	}
}

// encode turns a command-line value into the scheme's wire payload.
func encode(s types.Scheme, v string) ([]byte, error) {
	const op = "console.encode"
	switch s {
	case types.Digital, types.Percent:
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidInput, op, err)
		}
		return []byte{byte(n)}, nil
	case types.Analog:
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidInput, op, err)
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(n)), nil
	case types.Bus:
		return []byte(v), nil
	}
	return nil, errcode.New(errcode.Unsupported, op, "cannot write scheme "+s.String())
}

// format renders a read payload for display.
func format(loc string, s types.Scheme, b []byte) string {
	switch s {
	case types.Bus:
		return strconv.Quote(string(b))
	case types.Memory:
		var m map[string]any
		if err := cbor.Unmarshal(b, &m); err != nil {
			return "undecodable " + strconv.Itoa(len(b)) + " bytes"
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + toString(m[k])
		}
		return strings.Join(parts, " ")
	}
	switch len(b) {
	case 1:
		return strconv.Itoa(int(b[0]))
	case 2:
		return strconv.Itoa(int(binary.LittleEndian.Uint16(b)))
	case 4:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10)
	case 8:
		if strings.HasSuffix(loc, "sys/heap") {
			return "used=" + strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10) +
				" free=" + strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b[4:])), 10)
		}
		return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10)
	}
	return strconv.Itoa(len(b)) + " bytes"
}

func toString(v any) string {
	switch x := v.(type) {
	case uint64:
		return strconv.FormatUint(x, 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	}
	return "?"
}
