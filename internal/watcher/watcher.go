package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/lumbrjx/codek7/streaming/pkg/logger"
	"github.com/segmentio/kafka-go"
)

var fetchRetryDelay = time.Second

// MessageReader is the part of *kafka.Reader the watcher uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type TranscodingHandler interface {
	OnTranscodingFinished(ctx context.Context, videoID string)
}

// Watcher consumes transcoding-finished events and triggers HLS rebuilds.
type Watcher struct {
	reader  MessageReader
	handler TranscodingHandler
	started atomic.Bool
	done    chan struct{}
}

func NewWatcher(reader MessageReader, handler TranscodingHandler) *Watcher {
	return &Watcher{
		reader:  reader,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Start consumes messages until ctx is cancelled or the reader is closed.
func (w *Watcher) Start(ctx context.Context) {
	w.started.Store(true)
	logger.Logger.Info("Watcher started, consuming transcoding events")

	go func() {
		defer close(w.done)
		for {
			msg, err := w.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				logger.Logger.Error("Error fetching transcoding event", "error", err.Error())
				select {
				case <-ctx.Done():
					return
				case <-time.After(fetchRetryDelay):
				}
				continue
			}
			w.processMessage(ctx, msg)
		}
	}()
}

func (w *Watcher) processMessage(ctx context.Context, msg kafka.Message) {
	var event TranscodedEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil || event.VideoID == "" {
		logger.Logger.Error("Dropping malformed transcoding event",
			"offset", msg.Offset,
			"partition", msg.Partition,
		)
	} else {
		logger.Logger.Info("Received transcoding event", "video_id", event.VideoID)
		w.handler.OnTranscodingFinished(ctx, event.VideoID)
	}

	if err := w.reader.CommitMessages(ctx, msg); err != nil {
		logger.Logger.Error("Failed to commit transcoding event",
			"offset", msg.Offset,
			"error", err.Error(),
		)
	}
}

// Close stops the reader and waits for the consuming goroutine.
func (w *Watcher) Close() error {
	err := w.reader.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}
