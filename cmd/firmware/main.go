// Command firmware boots the runtime from the embedded board description
// and runs the serial console and the heartbeat led.
package main

import (
	"context"
	_ "embed"
	"time"

	"go.uber.org/zap"

	"devicert-go/services/console"
	"devicert-go/services/heartbeat"
	"devicert-go/services/rt"
)

//go:embed board.yaml
var boardYAML []byte

const (
	consolePort = "bus://serial/usart1"
	statusLED   = "pc13"
	beatEvery   = 500 * time.Millisecond
)

func main() {
	// Allow USB CDC to enumerate before we log.
	time.Sleep(2 * time.Second)

	log := newLogger()
	defer log.Sync()
	rt.SetLogger(log)

	cfg, err := rt.ParseBoard(boardYAML)
	if err != nil {
		halt(log, "board description", err)
	}
	r, err := rt.InitBoard(cfg, rt.DefaultFactories())
	if err != nil {
		halt(log, "board init", err)
	}
	log.Info("boot", zap.String("board", cfg.Name), zap.Strings("resources", r.Resources()))

	con, err := console.New(r, consolePort, log)
	if err != nil {
		halt(log, "console", err)
	}
	hb, err := heartbeat.New(r, heartbeat.Config{LED: statusLED, Interval: beatEvery}, log)
	if err != nil {
		halt(log, "heartbeat", err)
	}
	for _, f := range []rt.Future{con, hb} {
		if _, err := r.Spawn(f); err != nil {
			halt(log, "spawn", err)
		}
	}

	r.Run(context.Background())
}

// halt logs a setup failure and parks forever; there is nothing to return to.
func halt(log *zap.Logger, what string, err error) {
	log.Error("setup failed", zap.String("stage", what), zap.Error(err))
	_ = log.Sync()
	select {}
}
