package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Badger is an embedded on-disk store for long-lived single-device
// processes such as kiosks.
type Badger struct {
	db        *badger.DB
	namespace string
}

// BadgerConfig configures OpenBadger
type BadgerConfig struct {
	// Path is the database directory; ignored when InMemory is set
	Path      string
	InMemory  bool
	Namespace string
	Logger    zerolog.Logger
}

// badgerLogger adapts zerolog to badger's Logger interface
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

// OpenBadger opens (creating if needed) a BadgerDB instance
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("%w: failed to create badger dir: %v", ErrUnavailable, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger: %v", ErrUnavailable, err)
	}
	return &Badger{db: db, namespace: cfg.Namespace}, nil
}

func (b *Badger) Get(key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(namespaced(b.namespace, key)))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: badger get: %v", ErrUnavailable, err)
	}
	return string(value), true, nil
}

func (b *Badger) Set(key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(namespaced(b.namespace, key)), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%w: badger set: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
