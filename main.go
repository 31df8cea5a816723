// Command wavefeed plays local audio files and HTTP streams through the
// default audio device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/wavefeed/internal/config"
	"github.com/llehouerou/wavefeed/internal/errmsg"
	"github.com/llehouerou/wavefeed/internal/lifecycle"
	"github.com/llehouerou/wavefeed/internal/output"
	"github.com/llehouerou/wavefeed/internal/playback"
	"github.com/llehouerou/wavefeed/internal/player"
	"github.com/llehouerou/wavefeed/internal/source"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (overrides the default locations)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (default from config)")
	seek := flag.Duration("seek", 0, "Start the first track at this position")
	repeat := flag.String("repeat", "off", "Repeat mode: off, all, one")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wavefeed [flags] file-or-url...\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *logLevel, *seek, *repeat, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, seek time.Duration, repeat string, identifiers []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpConfigLoad, err)
	}
	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	})))

	mode, err := parseRepeat(repeat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := source.NewRegistry(source.NewLocalManager(), source.NewHTTPManager(nil))
	p := player.New(registry.Factory(), cfg.PlayerOptions())
	defer p.Destroy()

	lm := lifecycle.New(cfg.GetLifecycleConfig().Interval)
	lm.Register(p)
	if err := lm.Start(ctx); err != nil {
		return err
	}
	defer lm.Stop()

	streamer := output.NewStreamer(p)
	spk, err := output.OpenSpeaker(cfg.Format().SampleRate, output.DefaultLatency, streamer)
	if err != nil {
		return err
	}
	defer spk.Close()

	svc := playback.New(p)
	defer svc.Close()
	sub := svc.Subscribe()

	tracks := make([]playback.Track, len(identifiers))
	for i, id := range identifiers {
		tracks[i] = playback.Track{Identifier: id}
	}
	tracks[0].Start = seek
	svc.AddTracks(tracks...)
	svc.SetRepeatMode(mode)

	slog.Info("wavefeed: starting",
		"tracks", len(tracks),
		"format", cfg.Format().String(),
		"repeat", mode.String(),
	)
	started := time.Now()
	if err := svc.Play(); err != nil {
		slog.Warn("wavefeed: nothing could be started", "error", err)
	}

	interrupted := wait(ctx, sub)
	svc.Close()
	p.StopTrack()

	stats := streamer.Stats()
	fmt.Printf("%s frames (%s) in %s, %s underruns\n",
		humanize.Comma(int64(stats.Frames)),   //nolint:gosec // counters fit
		humanize.IBytes(stats.Bytes),
		time.Since(started).Round(time.Second),
		humanize.Comma(int64(stats.Underruns)), //nolint:gosec // counters fit
	)
	if interrupted {
		fmt.Println("interrupted")
	}
	return nil
}

// wait logs playback events until the queue ends or ctx is cancelled. It
// reports whether playback was interrupted.
func wait(ctx context.Context, sub *playback.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case <-sub.QueueEnded:
			return false
		case <-sub.Done:
			return false
		case tc := <-sub.TrackChanged:
			slog.Info("wavefeed: now playing",
				"index", tc.Index,
				"identifier", tc.Current.Identifier,
			)
		case sc := <-sub.StateChanged:
			slog.Debug("wavefeed: state", "from", sc.Previous, "to", sc.Current)
		case ev := <-sub.Error:
			slog.Warn("wavefeed: playback error",
				"operation", ev.Operation,
				"identifier", ev.Identifier,
				"error", ev.Err,
			)
		}
	}
}

func parseRepeat(s string) (playback.RepeatMode, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return playback.RepeatOff, nil
	case "all":
		return playback.RepeatAll, nil
	case "one":
		return playback.RepeatOne, nil
	default:
		return playback.RepeatOff, fmt.Errorf("invalid repeat mode %q (must be off, all or one)", s)
	}
}
