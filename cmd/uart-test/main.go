//go:build rp2040

// Command uart-test sends a smoke message and then a block of patterned
// bytes from usart1 to usart2 over a jumper wire and checks what arrives.
package main

import (
	"context"
	_ "embed"
	"hash/fnv"
	"time"

	"devicert-go/services/rt"
	"devicert-go/types"
)

//go:embed board.yaml
var boardYAML []byte

const (
	smokeMsg  = "hello-uart"
	integrity = 4096
	chunk     = 64
)

// pattern returns byte i of the integrity stream.
func pattern(i int) byte { return byte(i*31 + i>>8) }

// writer streams smokeMsg followed by the integrity pattern, chunk bytes
// at a time.
type writer struct {
	r    *rt.Runtime
	port types.ResourceID
	sent int
	buf  [chunk]byte
	n    int // bytes in buf still to send
	off  int
}

func (w *writer) Poll(cx *rt.Context) rt.Poll {
	for {
		if w.off == w.n {
			w.off, w.n = 0, 0
			switch {
			case w.sent == 0:
				w.n = copy(w.buf[:], smokeMsg)
			case w.sent < len(smokeMsg)+integrity:
				base := w.sent - len(smokeMsg)
				for w.n < chunk && base+w.n < integrity {
					w.buf[w.n] = pattern(base + w.n)
					w.n++
				}
			default:
				return rt.Ready
			}
		}
		k, err := w.r.PollWrite(cx, w.port, w.buf[w.off:w.n])
		if rt.IsPending(err) {
			return rt.Pending
		}
		if err != nil {
			println("[uart] write:", err.Error())
			return rt.Ready
		}
		w.off += k
		w.sent += k
	}
}

// reader checks the smoke message, then hashes the integrity stream.
type reader struct {
	r     *rt.Runtime
	port  types.ResourceID
	got   int
	smoke []byte
	buf   [chunk]byte
	sum   uint32
	want  uint32
	start time.Time
}

func (rd *reader) Poll(cx *rt.Context) rt.Poll {
	h := fnv.New32a()
	for {
		n, err := rd.r.PollRead(cx, rd.port, rd.buf[:])
		if rt.IsPending(err) {
			return rt.Pending
		}
		if err != nil {
			println("[uart] read:", err.Error())
			return rt.Ready
		}
		for _, b := range rd.buf[:n] {
			if len(rd.smoke) < len(smokeMsg) {
				rd.smoke = append(rd.smoke, b)
				if len(rd.smoke) == len(smokeMsg) {
					println("[uart] smoke:", verdict(string(rd.smoke) == smokeMsg))
					rd.start = time.Now()
				}
				continue
			}
			h.Reset()
			h.Write([]byte{byte(rd.sum), byte(rd.sum >> 8), byte(rd.sum >> 16), byte(rd.sum >> 24), b})
			rd.sum = h.Sum32()
			rd.got++
		}
		if rd.got >= integrity {
			el := time.Since(rd.start)
			println("[uart] integrity:", verdict(rd.sum == rd.want), "in", el.Milliseconds(), "ms")
			return rt.Ready
		}
	}
}

// expected folds the pattern the same way the reader does.
func expected() uint32 {
	h := fnv.New32a()
	var sum uint32
	for i := 0; i < integrity; i++ {
		h.Reset()
		h.Write([]byte{byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24), pattern(i)})
		sum = h.Sum32()
	}
	return sum
}

func verdict(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func main() {
	println("[uart] boot …")
	time.Sleep(1500 * time.Millisecond)

	cfg, err := rt.ParseBoard(boardYAML)
	if err != nil {
		println("[uart] board:", err.Error())
		return
	}
	r, err := rt.InitBoard(cfg, rt.DefaultFactories())
	if err != nil {
		println("[uart] init:", err.Error())
		return
	}
	tx, err := r.Open("bus://serial/usart1")
	if err != nil {
		println("[uart] open usart1:", err.Error())
		return
	}
	rx, err := r.Open("bus://serial/usart2")
	if err != nil {
		println("[uart] open usart2:", err.Error())
		return
	}

	_, _ = r.Spawn(&reader{r: r, port: rx, want: expected()})
	_, _ = r.Spawn(&writer{r: r, port: tx})
	println("[uart] running")
	r.Run(context.Background())
}
