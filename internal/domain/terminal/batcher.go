package terminal

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/agentsmonitor/backend/internal/infrastructure/monitoring"
	"github.com/agentsmonitor/backend/internal/logging"
)

const (
	// batchSize is the flush threshold in bytes.
	batchSize = 4096

	// batchInterval caps event emission near 60 flushes per second.
	batchInterval = 16 * time.Millisecond
)

// batcher drains one session's PTY reader and forwards output to the event
// sink in bounded batches: a flush happens when the accumulated batch
// reaches batchSize or batchInterval has elapsed since the last flush with
// data pending, whichever comes first. It never touches the registry; the
// reader is handed over before the session is registered.
type batcher struct {
	sessionID string
	reader    io.Reader
	sink      EventSink
	recorder  *Recorder // optional transcript tee
	metrics   *monitoring.Metrics
	log       *logging.Logger
}

// run drives the batcher until end-of-stream or hard abort. On EOF or a
// read error the remaining partial batch is flushed and the ended event is
// emitted; on abort both may be skipped.
func (b *batcher) run(ctx context.Context) {
	defer b.closeRecorder()

	reads := make(chan []byte, 8)
	go b.readLoop(ctx, reads)

	var (
		batch     []byte
		timer     *time.Timer
		timerC    <-chan time.Time
		lastFlush = time.Now()
	)

	flush := func(reason string) {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
		if len(batch) == 0 {
			return
		}
		data := batch
		batch = nil
		b.record(data)
		b.sink.Output(b.sessionID, data)
		lastFlush = time.Now()
		if b.metrics != nil {
			b.metrics.RecordOutputFlush(reason, len(data))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case chunk, ok := <-reads:
			if !ok {
				flush("eof")
				b.sink.Ended(b.sessionID)
				return
			}
			batch = append(batch, chunk...)
			if len(batch) >= batchSize {
				flush("size")
				continue
			}
			if timerC == nil {
				wait := batchInterval - time.Since(lastFlush)
				if wait <= 0 {
					flush("interval")
					continue
				}
				timer = time.NewTimer(wait)
				timerC = timer.C
			}

		case <-timerC:
			timer = nil
			timerC = nil
			flush("interval")
		}
	}
}

// readLoop feeds raw chunks from the PTY into the batching loop. Any read
// error is treated as end-of-stream; a closed PTY master lands here too.
func (b *batcher) readLoop(ctx context.Context, reads chan<- []byte) {
	defer close(reads)

	buf := make([]byte, batchSize)
	for {
		n, err := b.reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case reads <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF && b.log != nil {
				b.log.Debug("pty read ended", zap.Error(err))
			}
			return
		}
	}
}

func (b *batcher) record(data []byte) {
	if b.recorder == nil {
		return
	}
	if _, err := b.recorder.Write(data); err != nil {
		if b.log != nil {
			b.log.Warn("transcript write failed, recording disabled",
				zap.String("path", b.recorder.Path()),
				zap.Error(err))
		}
		b.recorder.Close()
		b.recorder = nil
	}
}

func (b *batcher) closeRecorder() {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.Close(); err != nil && b.log != nil {
		b.log.Warn("transcript close failed", zap.Error(err))
	}
	b.recorder = nil
}
