package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"hubScope/internal/metrics"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/ticks"
)

// ErrOutOfOrder is returned when the input is not sorted by block and log index.
var ErrOutOfOrder = errors.New("typed events out of order")

// Stats summarizes a Processor run.
type Stats struct {
	Total     int
	Applied   int
	Covered   int
	Failed    int
	Malformed int
}

// Processor replays typed events through the handlers, committing each
// event's entities together with the cursor.
type Processor struct {
	store    store.Store
	handlers *Handlers
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewProcessor(st store.Store, handlers *Handlers, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{store: st, handlers: handlers, logger: logger}
	if handlers != nil {
		p.metrics = handlers.metrics
	}
	return p
}

// RunFile processes a typed events JSONL file.
func (p *Processor) RunFile(ctx context.Context, path string) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return p.Run(ctx, file)
}

// Run processes typed event lines from r. Events at or before the stored
// cursor are skipped, so an interrupted run can simply be repeated.
func (p *Processor) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	if p.store == nil {
		return stats, fmt.Errorf("store is nil")
	}
	if p.handlers == nil {
		return stats, fmt.Errorf("handlers are nil")
	}

	cursor, hasCursor, err := p.loadCursor(ctx)
	if err != nil {
		return stats, err
	}
	if hasCursor {
		p.logger.Info("resuming", zap.Uint64("block", cursor.BlockNumber), zap.Uint64("log_index", cursor.LogIndex))
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var last *model.Cursor
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		var rec model.TypedEventRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Malformed++
			p.logger.Warn("decode typed event", zap.Error(err))
			continue
		}
		if last != nil && last.Covers(rec.BlockNumber, rec.LogIndex) {
			return stats, fmt.Errorf("block %d log %d after block %d log %d: %w",
				rec.BlockNumber, rec.LogIndex, last.BlockNumber, last.LogIndex, ErrOutOfOrder)
		}
		pos := rec.Position()
		last = &pos

		if hasCursor && cursor.Covers(rec.BlockNumber, rec.LogIndex) {
			stats.Covered++
			continue
		}

		applied, err := p.apply(ctx, rec)
		if err != nil {
			return stats, err
		}
		if applied {
			stats.Applied++
		} else {
			stats.Failed++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	p.logger.Info("index completed",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("covered", stats.Covered),
		zap.Int("failed", stats.Failed),
		zap.Int("malformed", stats.Malformed),
	)
	return stats, nil
}

// apply handles one event in its own session. Events that reference missing
// entities or carry unusable payloads are dropped; only the cursor moves.
// Any other error halts the run with the cursor left before the event.
func (p *Processor) apply(ctx context.Context, rec model.TypedEventRecord) (bool, error) {
	sess := store.NewSession(p.store)
	cursorOp, err := cursorOp(rec)
	if err != nil {
		return false, err
	}

	herr := p.handlers.Handle(ctx, sess, rec)
	if herr != nil {
		reason := skipReason(herr)
		if reason == "" {
			sess.Discard()
			return false, fmt.Errorf("%s at block %d log %d: %w", rec.EventName, rec.BlockNumber, rec.LogIndex, herr)
		}
		p.logger.Warn("event dropped",
			zap.String("event", rec.EventName),
			zap.String("tx", rec.TxHash),
			zap.Uint64("log_index", rec.LogIndex),
			zap.String("reason", reason),
			zap.Error(herr),
		)
		p.metrics.EventFailures.WithLabelValues(rec.EventName, reason).Inc()
		sess.Discard()
	}

	n, err := sess.Commit(ctx, cursorOp)
	if err != nil {
		return false, err
	}
	p.metrics.BatchSize.Observe(float64(n))
	p.metrics.LastBlock.Set(float64(rec.BlockNumber))
	if herr != nil {
		return false, nil
	}
	p.metrics.EventsProcessed.WithLabelValues(rec.EventName).Inc()
	return true, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ticks.ErrInvalidRange):
		return "invalid_range"
	default:
		return ""
	}
}

func (p *Processor) loadCursor(ctx context.Context) (model.Cursor, bool, error) {
	var cursor model.Cursor
	data, ok, err := p.store.Load(ctx, store.KindCursor, model.CursorID)
	if err != nil || !ok {
		return cursor, false, err
	}
	if err := json.Unmarshal(data, &cursor); err != nil {
		return cursor, false, fmt.Errorf("decode cursor: %w", err)
	}
	return cursor, true, nil
}

func cursorOp(rec model.TypedEventRecord) (store.Op, error) {
	data, err := json.Marshal(rec.Position())
	if err != nil {
		return store.Op{}, fmt.Errorf("encode cursor: %w", err)
	}
	return store.Op{Kind: store.KindCursor, ID: model.CursorID, Data: data}, nil
}
