package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{GraphPaths: []string{"g.hcl"}})
	require.NoError(t, err)
	assert.Equal(t, StoreNone, cfg.ResultStore)

	cases := map[string]struct {
		cfg  Config
		want string
	}{
		"no paths":      {cfg: Config{}, want: "graph path is required"},
		"negative":      {cfg: Config{GraphPaths: []string{"g"}, Parallel: -1}, want: "must not be negative"},
		"unknown store": {cfg: Config{GraphPaths: []string{"g"}, ResultStore: "s3"}, want: `unknown result store "s3"`},
		"azure":         {cfg: Config{GraphPaths: []string{"g"}, ResultStore: StoreAzure}, want: "connection string"},
		"nats":          {cfg: Config{GraphPaths: []string{"g"}, ResultStore: StoreNATS, NATSURL: "nats://x"}, want: "URL and a bucket"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
