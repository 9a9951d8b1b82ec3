// Package scanner retrieves contract events over arbitrary block intervals,
// adapting the size of each sub-range to what the provider accepts.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/thesandboxgame/ownership-gatherer/internal/domain"
	"github.com/thesandboxgame/ownership-gatherer/internal/logger"
	"github.com/thesandboxgame/ownership-gatherer/internal/metrics"
)

const (
	DEFAULT_GROWTH_THRESHOLD = 6
	DEFAULT_MIN_RANGE_SIZE   = 1
)

// ErrRangeSizeExhausted is returned when the provider keeps failing after the
// range size has been halved below the configured minimum
var ErrRangeSizeExhausted = errors.New("block range size exhausted")

// FetchFunc returns the records of one inclusive block range, in chain order.
// It must return an error rather than a partial result on any provider failure.
// Errors wrapped with backoff.Permanent end the scan instead of shrinking the range.
type FetchFunc[T any] func(ctx context.Context, r domain.BlockRange) ([]T, error)

// HeadFunc returns the current chain head
type HeadFunc func(ctx context.Context) (uint64, error)

// Config tunes the adaptive range sizing
type Config struct {
	// InitialRangeSize is the first number of blocks requested per fetch
	InitialRangeSize uint64

	// MinRangeSize is the smallest range size tried before giving up
	MinRangeSize uint64

	// GrowthThreshold is the success streak after which the range size is doubled
	GrowthThreshold int
}

func (c Config) withDefaults() Config {
	if c.InitialRangeSize == 0 {
		c.InitialRangeSize = domain.DEFAULT_INITIAL_RANGE_SIZE
	}
	if c.MinRangeSize == 0 {
		c.MinRangeSize = DEFAULT_MIN_RANGE_SIZE
	}
	if c.GrowthThreshold == 0 {
		c.GrowthThreshold = DEFAULT_GROWTH_THRESHOLD
	}
	return c
}

// Attempt describes one fetch call made during a scan
type Attempt struct {
	Range   domain.BlockRange
	Size    uint64
	Records int
	Err     error
}

type options struct {
	history  *RangeSizeHistory
	observer func(Attempt)
}

// Option customizes a Scanner
type Option func(*options)

// WithHistory makes every scan start from the given range size history
// instead of an empty one
func WithHistory(h *RangeSizeHistory) Option {
	return func(o *options) { o.history = h }
}

// WithObserver registers a callback invoked after every fetch attempt
func WithObserver(fn func(Attempt)) Option {
	return func(o *options) { o.observer = fn }
}

// Scanner walks a block interval with a single cursor, issuing fetch calls
// strictly one after another
type Scanner[T any] struct {
	name   string
	fetch  FetchFunc[T]
	head   HeadFunc
	config Config
	opts   options
}

// New creates a scanner. name labels its logs and metrics.
func New[T any](name string, fetch FetchFunc[T], head HeadFunc, cfg Config, opts ...Option) *Scanner[T] {
	s := &Scanner[T]{
		name:   name,
		fetch:  fetch,
		head:   head,
		config: cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Scan fetches every record from startBlock up to the chain head. The head is
// resolved once, so blocks produced while scanning are not included.
func (s *Scanner[T]) Scan(ctx context.Context, startBlock uint64) ([]T, error) {
	if s.head == nil {
		return nil, errors.New("scanner has no chain head source")
	}

	endBlock, err := s.head(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chain head: %w", err)
	}

	return s.ScanRange(ctx, startBlock, endBlock)
}

// ScanRange fetches every record in [startBlock, endBlock]. Records of an
// earlier sub-range always precede those of a later one.
func (s *Scanner[T]) ScanRange(ctx context.Context, startBlock, endBlock uint64) ([]T, error) {
	history := s.opts.history
	if history == nil {
		history = NewRangeSizeHistory()
	}

	log := logger.FromContext(ctx).With(zap.String("scan", s.name))
	log.Info("Starting block range scan",
		zap.Uint64("start_block", startBlock),
		zap.Uint64("end_block", endBlock),
		zap.Uint64("range_size", s.config.InitialRangeSize))

	records := make([]T, 0)
	rangeSize := s.config.InitialRangeSize
	consecutiveSuccess := 0
	fromBlock := startBlock

	for fromBlock <= endBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r := domain.BlockRange{From: fromBlock, To: rangeEnd(fromBlock, rangeSize, endBlock)}
		metrics.ScanRangeSize.WithLabelValues(s.name).Set(float64(rangeSize))

		batch, err := s.fetch(ctx, r)
		s.observe(Attempt{Range: r, Size: rangeSize, Records: len(batch), Err: err})

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				metrics.ScanAttempts.WithLabelValues(s.name, OutcomeFailed.String()).Inc()
				return nil, fmt.Errorf("failed to fetch range %s: %w", r, permanent.Err)
			}

			history.Record(rangeSize, OutcomeFailed)
			consecutiveSuccess = 0
			metrics.ScanAttempts.WithLabelValues(s.name, OutcomeFailed.String()).Inc()

			next := rangeSize / 2
			log.Warn("Failed to fetch block range, shrinking range size",
				zap.Uint64("from_block", r.From),
				zap.Uint64("to_block", r.To),
				zap.Uint64("range_size", rangeSize),
				zap.Uint64("next_range_size", next),
				zap.Error(err))

			if next < s.config.MinRangeSize {
				return nil, fmt.Errorf("%w: range %s failed at size %d: %w", ErrRangeSizeExhausted, r, rangeSize, err)
			}
			rangeSize = next
			continue
		}

		records = append(records, batch...)
		history.Record(rangeSize, OutcomeSucceeded)
		consecutiveSuccess++

		metrics.ScanAttempts.WithLabelValues(s.name, OutcomeSucceeded.String()).Inc()
		metrics.ScanRecords.WithLabelValues(s.name).Add(float64(len(batch)))
		metrics.ScanLastBlock.WithLabelValues(s.name).Set(float64(r.To))

		log.Info("Fetched block range",
			zap.Uint64("from_block", r.From),
			zap.Uint64("to_block", r.To),
			zap.Uint64("range_size", rangeSize),
			zap.Int("records", len(batch)))

		if consecutiveSuccess > s.config.GrowthThreshold && rangeSize <= math.MaxUint64/2 {
			if grown := rangeSize * 2; history.CanGrowTo(grown) {
				rangeSize = grown
			}
		}

		if r.To == endBlock {
			break
		}
		fromBlock = r.To + 1
	}

	log.Info("Finished block range scan", zap.Int("records", len(records)))
	return records, nil
}

func (s *Scanner[T]) observe(a Attempt) {
	if s.opts.observer != nil {
		s.opts.observer(a)
	}
}

// rangeEnd returns min(from+size-1, end) without overflowing
func rangeEnd(from, size, end uint64) uint64 {
	if size-1 >= end-from {
		return end
	}
	return from + size - 1
}
