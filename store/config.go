package store

import (
	"fmt"

	"github.com/go-kit/log"

	"github.com/spookydb/spookydb/format"
	"github.com/spookydb/spookydb/internal/options"
)

// DefaultCacheCapacity is the default size of the row cache, in entries.
const DefaultCacheCapacity = 10000

// Config carries store construction options. Open starts from the defaults
// (cache capacity 10000, no compression, a no-op logger, synced writes) and
// applies the With* options on top.
type Config struct {
	cacheCapacity int
	compression   format.CompressionType
	logger        log.Logger
	syncWrites    bool
}

func newConfig() *Config {
	return &Config{
		cacheCapacity: DefaultCacheCapacity,
		compression:   format.CompressionNone,
		logger:        log.NewNopLogger(),
		syncWrites:    true,
	}
}

// Option configures a store at Open time.
type Option = options.Option[*Config]

// WithCacheCapacity sets the row cache capacity in entries. The capacity
// must be positive.
func WithCacheCapacity(n int) Option {
	return options.New(func(cfg *Config) error {
		if n <= 0 {
			return fmt.Errorf("cache capacity must be positive, got %d", n)
		}
		cfg.cacheCapacity = n

		return nil
	})
}

// WithValueCompression selects the at-rest codec for record values. The
// default is CompressionNone. Every stored value carries a one-byte codec
// prefix, so a store written with one codec can be reopened with another;
// old rows keep decoding with the codec that wrote them.
func WithValueCompression(c format.CompressionType) Option {
	return options.New(func(cfg *Config) error {
		switch c {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			cfg.compression = c

			return nil
		default:
			return fmt.Errorf("unsupported value compression: %s", c)
		}
	})
}

// WithLogger sets the structured logger. The default discards all output.
func WithLogger(l log.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.logger = l
	})
}

// WithSyncWrites controls whether commits fsync before returning. It
// defaults to true; disabling it trades the durability guarantee for bulk
// load throughput.
func WithSyncWrites(enabled bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.syncWrites = enabled
	})
}
