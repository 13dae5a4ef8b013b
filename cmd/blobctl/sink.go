// ABOUTME: Media sink that plays the bridge's relayed PCM
// ABOUTME: Parses format, audio, and end-of-stream packets into an audio output
package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/spotblob/spotblob/internal/media"
	"github.com/spotblob/spotblob/internal/ui"
	"github.com/spotblob/spotblob/pkg/audio"
	"github.com/spotblob/spotblob/pkg/audio/output"
)

type sinkStats struct {
	packets  int
	bytes    int
	duration time.Duration
}

// playMedia copies one stream from r into out until end of stream.
// report, when set, receives the format and running progress.
func playMedia(r io.Reader, out output.Output, log *zap.Logger, report func(ui.StatusMsg)) (sinkStats, error) {
	if report == nil {
		report = func(ui.StatusMsg) {}
	}
	var stats sinkStats
	opened := false
	for {
		p, err := media.ReadPacket(r)
		if errors.Is(err, io.EOF) {
			log.Warn("media connection closed before end of stream")
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.packets++

		switch p.Kind {
		case media.PacketFormat:
			info, err := media.ParseStreamInfo(p)
			if err != nil {
				return stats, err
			}
			if info.BitsPerSample != audio.BitDepth {
				return stats, fmt.Errorf("unsupported sample size %d", info.BitsPerSample)
			}
			if err := out.Open(audio.Format{SampleRate: info.SampleRate, Channels: info.Channels}); err != nil {
				return stats, fmt.Errorf("open output: %w", err)
			}
			opened = true
			log.Info("stream started",
				zap.Int("sample_rate", info.SampleRate),
				zap.Int("channels", info.Channels),
				zap.Uint64("size_hint", info.SizeHint))
			report(ui.StatusMsg{SampleRate: info.SampleRate, Channels: info.Channels})
		case media.PacketAudio:
			if !opened {
				return stats, errors.New("audio before stream format")
			}
			if err := out.Write(p.Payload); err != nil {
				return stats, fmt.Errorf("write output: %w", err)
			}
			stats.bytes += len(p.Payload)
			stats.duration = p.Timestamp + p.Duration
			report(ui.StatusMsg{Bytes: int64(stats.bytes), Played: stats.duration})
		case media.PacketEOS:
			report(ui.StatusMsg{Finished: true})
			return stats, nil
		}
	}
}
