package main

import (
	"fmt"
	"os"

	"sublet-market/pkg/cache"
	"sublet-market/pkg/config"
	"sublet-market/services/listing/internal/repo/persistent"
)

func main() {
	root := newRootCmd(func() (draftStore, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		client, err := cache.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return persistent.NewRedisDraftStore(client, cfg.DraftTTL), nil
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
