// sonata-probe is a thin smoke-test CLI, analogous to mewkiz/flac's
// cmd/flac-frame and ausocean/av's cmd/rv: it opens a file, runs
// probe+demux+decode to end of stream, and reports track and frame
// counts. It is explicitly not a product surface (spec.md §1's
// Non-goals exclude a CLI product), just a way to exercise the
// pipeline end to end against a real file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sonatago/sonata"
	"github.com/sonatago/sonata/sample"
	"github.com/sonatago/sonata/sonataerr"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logFile = flag.String("log-file", "", "rotate structured logs to this file instead of stderr")
	dumpWav = flag.String("dump-wav", "", "write the first track's decoded PCM to this .wav path")
)

func main() {
	flag.Parse()
	logger := newLogger()
	defer logger.Sync()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: sonata-probe [flags] <file>")
		os.Exit(2)
	}
	if err := run(flag.Arg(0), logger); err != nil {
		logger.Error("probe failed", zap.Error(err))
		os.Exit(1)
	}
}

// newLogger builds a zap logger, optionally rotating to --log-file via
// lumberjack, matching SPEC_FULL.md's single-call-site rule for the
// rotation concern so it doesn't leak into the core.
func newLogger() *zap.Logger {
	if *logFile == "" {
		l, _ := zap.NewProduction()
		return l
	}
	rotator := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
	}
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(rotator), zap.InfoLevel)
	return zap.New(core)
}

func run(path string, logger *zap.Logger) error {
	sess, err := sonata.Open(path)
	if err != nil {
		return err
	}
	defer sess.Close()

	var dumper *wavDumper
	if *dumpWav != "" {
		dumper, err = newWavDumper(*dumpWav)
		if err != nil {
			return err
		}
		defer dumper.Close()
	}

	tracks := sess.Tracks()
	logger.Info("probed container", zap.Int("tracks", len(tracks)))
	for _, t := range tracks {
		logger.Info("track", zap.Uint32("id", t.ID), zap.Int("codec", int(t.Codec.Codec)), zap.Uint32("sample_rate", t.Codec.SampleRate), zap.Int("channels", t.Codec.Channels))
	}

	frameCounts := make(map[uint32]int)
	for {
		pkt, buf, err := sess.NextFrame()
		if err != nil {
			if sonataerr.IsUnexpectedEOF(err) {
				break
			}
			logger.Warn("decode error, skipping packet", zap.Uint32("track", pkt.TrackID), zap.Error(err))
			continue
		}
		frameCounts[pkt.TrackID]++
		if dumper != nil && len(tracks) > 0 && pkt.TrackID == tracks[0].ID {
			if err := dumper.Write(buf); err != nil {
				return err
			}
		}
	}

	for id, n := range frameCounts {
		fmt.Printf("track %d: %d packets decoded\n", id, n)
	}

	for id, result := range sess.Finalize() {
		if result.Verified && !result.VerifyOK {
			fmt.Printf("track %d: FAILED end-of-stream verification\n", id)
		}
	}
	return nil
}

// wavDumper bridges decoded sample.Buffer frames to a go-audio/wav
// Encoder, the same go-audio/audio.IntBuffer + wav.NewEncoder pattern
// ausocean-av/exp/flac/decode.go uses to bridge mewkiz/flac output.
type wavDumper struct {
	f   *os.File
	enc *wav.Encoder
}

func newWavDumper(path string) (*wavDumper, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &wavDumper{f: f}, nil
}

func (d *wavDumper) Write(buf *sample.Buffer) error {
	if d.enc == nil {
		d.enc = wav.NewEncoder(d.f, int(buf.SampleRate), 16, buf.Channels(), 1)
	}
	n := buf.Filled()
	nc := buf.Channels()
	data := make([]int, 0, n*nc)
	for i := 0; i < n; i++ {
		for ch := 0; ch < nc; ch++ {
			v := buf.Plane(ch)[i]
			data = append(data, int(sample.I16FromF32(sample.F32FromF64(v))))
		}
	}
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: nc, SampleRate: int(buf.SampleRate)},
		SourceBitDepth: 16,
		Data:           data,
	}
	return d.enc.Write(ib)
}

func (d *wavDumper) Close() error {
	if d.enc != nil {
		d.enc.Close()
	}
	return d.f.Close()
}
