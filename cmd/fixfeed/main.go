package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/plaza/internal/adapters/nats"
	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/pkg/config"
	"github.com/samirrijal/plaza/internal/pkg/logging"
)

const (
	batchSize   = 3
	minInterval = 200 * time.Millisecond
)

// fixfeed simulates a device: it replays a track onto the fix subject of a
// source and follows the sampling interval consumers request.
//
//	fixfeed [source] [track.csv]
func main() {
	cfg, err := config.Load("plaza-fixfeed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	source := natsadapter.DefaultSource
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	track := circleTrack(domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}, 300, 60)
	if len(os.Args) > 2 {
		f, err := os.Open(os.Args[2])
		if err != nil {
			log.Fatalf("open track: %v", err)
		}
		track, err = readTrack(f)
		f.Close()
		if err != nil {
			log.Fatalf("read track: %v", err)
		}
	}

	pub, err := natsadapter.NewFixPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	var interval atomic.Int64
	interval.Store(int64(cfg.Location.MinInterval()))
	if err := pub.OnRequest(source, func(r natsadapter.RequestMessage) {
		d := time.Duration(r.IntervalMS) * time.Millisecond
		if d < minInterval {
			d = minInterval
		}
		interval.Store(int64(d))
		logger.Info("location requested", "interval", d, "priority", r.Priority, "wait_accurate", r.WaitAccurate)
	}); err != nil {
		log.Fatalf("subscribe requests: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("fix feed started", "source", source, "fixes", len(track))

	p := &player{track: track}
	for {
		d := time.Duration(interval.Load())
		if d < minInterval {
			d = minInterval
		}
		select {
		case <-ctx.Done():
			logger.Info("fix feed stopped")
			return
		case now := <-time.After(d):
			batch := p.next(batchSize, now, d/batchSize)
			if err := pub.PublishFixes(ctx, source, batch); err != nil {
				logger.Warn("publish fixes", "error", err)
			}
		}
	}
}
