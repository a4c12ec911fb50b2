package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/conduit/internal/badgerstore"
	"github.com/specialistvlad/conduit/internal/blobstore"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/fsstore"
	"github.com/specialistvlad/conduit/internal/natsstore"
	"github.com/specialistvlad/conduit/internal/resultstore"
)

func noClose() error { return nil }

// openResultStore opens the configured backend. The returned close function
// is never nil. A nil store means results are not persisted.
func (app *App) openResultStore(ctx context.Context) (resultstore.Store, func() error, error) {
	logger := ctxlog.FromContext(ctx).With("result_store", app.config.ResultStore)
	cfg := app.config

	switch cfg.ResultStore {
	case StoreNone, "":
		return nil, noClose, nil
	case StoreMemory:
		return resultstore.NewMemory(), noClose, nil
	case StoreFS:
		var (
			s   *fsstore.Store
			err error
		)
		if cfg.ResultPath == "" {
			s, err = fsstore.NewTemp("conduit-results-*")
		} else {
			s, err = fsstore.New(cfg.ResultPath)
		}
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Persisting results to directory.", "dir", s.Dir())
		return s, s.Close, nil
	case StoreBadger:
		s, err := badgerstore.Open(badgerstore.Config{
			Path:     cfg.ResultPath,
			InMemory: cfg.ResultPath == "",
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Persisting results to badger.", "path", cfg.ResultPath)
		return s, s.Close, nil
	case StoreAzure:
		s, err := blobstore.NewFromConnectionString(cfg.AzureConnectionString, cfg.AzureContainer, "")
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Persisting results to Azure Blob Storage.", "container", cfg.AzureContainer)
		return s, noClose, nil
	case StoreNATS:
		s, err := natsstore.Connect(ctx, natsstore.Config{URL: cfg.NATSURL, Bucket: cfg.NATSBucket, Create: true})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Persisting results to NATS.", "bucket", cfg.NATSBucket)
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown result store %q", cfg.ResultStore)
}
