package app

import (
	"errors"
	"fmt"
	"time"
)

// Result store backends.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreFS     = "fs"
	StoreBadger = "badger"
	StoreAzure  = "azblob"
	StoreNATS   = "nats"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPaths []string // .hcl, .yaml and .yml files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	Concurrency       int
	Parallel          int
	NodeTimeout       time.Duration
	FailFast          bool
	InterruptOnCancel bool
	DryRun            bool

	ResultStore string
	// ResultPath is the directory of the fs store or the badger database.
	// Empty means a temporary directory removed at exit.
	ResultPath            string
	AzureConnectionString string
	AzureContainer        string
	NATSURL               string
	NATSBucket            string

	Trace       bool
	SocketIOURL string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.GraphPaths) == 0 {
		return nil, errors.New("at least one graph path is required")
	}
	if cfg.Concurrency < 0 || cfg.Parallel < 0 {
		return nil, errors.New("concurrency and parallel must not be negative")
	}
	if cfg.NodeTimeout < 0 {
		return nil, errors.New("node timeout must not be negative")
	}
	if cfg.ResultStore == "" {
		cfg.ResultStore = StoreNone
	}

	switch cfg.ResultStore {
	case StoreNone, StoreMemory, StoreFS, StoreBadger:
	case StoreAzure:
		if cfg.AzureConnectionString == "" || cfg.AzureContainer == "" {
			return nil, errors.New("the azblob result store needs a connection string and a container")
		}
	case StoreNATS:
		if cfg.NATSURL == "" || cfg.NATSBucket == "" {
			return nil, errors.New("the nats result store needs a URL and a bucket")
		}
	default:
		return nil, fmt.Errorf("unknown result store %q", cfg.ResultStore)
	}

	return &cfg, nil
}
