// Command coreio-echo runs the Echo scenario from spec.md §8 as a
// standalone server: accept connections on a TCP listener, and for each
// one, loop Read/WriteAll until the peer closes. It exists to exercise
// the public coreio API end to end, the way the teacher's ublk-mem
// exercises the rest of that repo.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/behrlich/coreio"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:9595", "address to listen on")
		verbose  = flag.Bool("v", false, "verbose logging")
		useUring = flag.Bool("uring", false, "use the io_uring completion driver instead of epoll readiness")
	)
	flag.Parse()

	var logger coreio.Logger = coreio.NopLogger()
	if *verbose {
		logger = coreio.NewSlogLogger(os.Stderr)
	}

	cfg := coreio.Config{}
	if *useUring {
		cfg.Selector = coreio.Completion
	}

	engine, err := coreio.NewEngine(cfg, coreio.WithEngineLogger(logger))
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}
	defer engine.Close()

	coreio.PinCurrentThread(0)

	engine.Spawn(coreio.Go(func(y *coreio.Yielder) {
		ln, err := y.NewListener(*addr)
		if err != nil {
			logger.Error("listen failed", "addr", *addr, "error", err)
			return
		}
		defer ln.Close()
		logger.Info("listening", "addr", *addr)

		for {
			conn, err := ln.Accept()
			if err != nil {
				logger.Error("accept failed", "error", err)
				return
			}
			engine.Spawn(coreio.Go(func(*coreio.Yielder) {
				echoConn(engine, conn, logger)
			}))
		}
	}))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var stopped atomic.Bool
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		stopped.Store(true)
	}()

	if err := engine.Run(func() bool { return stopped.Load() }); err != nil {
		log.Fatalf("engine run: %v", err)
	}

	fmt.Println("coreio-echo stopped")
}

// echoConn reads from conn and writes each chunk straight back until the
// peer shuts the connection down (a zero-length Read) or an error occurs.
func echoConn(engine *coreio.Engine, conn *coreio.Stream, logger coreio.Logger) {
	defer conn.Close()
	buf := engine.GetBuffer()
	defer engine.PutBuffer(buf)

	for {
		buf.Reset()
		_, err := conn.Read(buf)
		if err != nil {
			logger.Debug("read ended", "fd", conn.Fd(), "error", err)
			return
		}
		if buf.Written() == 0 {
			return
		}
		if err := conn.WriteAll(buf); err != nil {
			logger.Debug("write failed", "fd", conn.Fd(), "error", err)
			return
		}
	}
}
