// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package imagecache keeps public panorama images in BadgerDB so the public viewer's
// requests do not all reach the backend.
//
// Each image is stored under two keys written in one transaction: a JSON metadata
// record and the raw bytes. Both carry the same TTL, so badger expires them together.
// An empty path opens the cache in memory.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
)

const (
	metaPrefix = "img:meta:"
	bodyPrefix = "img:body:"

	gcDiscardRatio = 0.5
)

// ErrTooLarge is returned by Put for images above the configured size limit.
var ErrTooLarge = errors.New("image exceeds cache size limit")

// Image is a cached image response.
type Image struct {
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
	Body         []byte    `json:"-"`
}

// Cache is a badger-backed image store. Safe for concurrent use.
type Cache struct {
	db         *badger.DB
	ttl        time.Duration
	maxBytes   int64
	gcInterval time.Duration
	inMemory   bool
}

// Open opens (or creates) the cache described by cfg.
func Open(cfg *config.ImagesConfig) (*Cache, error) {
	inMemory := cfg.CachePath == ""

	opts := badger.DefaultOptions(cfg.CachePath)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.ValueLogFileSize = 64 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for image cache: %w", err)
	}

	l := logging.WithComponent("image-cache")
	l.Info().
		Str("path", cfg.CachePath).
		Bool("in_memory", inMemory).
		Dur("ttl", cfg.CacheTTL).
		Msg("Image cache opened")

	return &Cache{
		db:         db,
		ttl:        cfg.CacheTTL,
		maxBytes:   cfg.MaxBytes,
		gcInterval: cfg.GCInterval,
		inMemory:   inMemory,
	}, nil
}

// Get returns the cached image for key.
func (c *Cache) Get(key string) (*Image, bool, error) {
	var img Image
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + key))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &img)
		}); err != nil {
			return fmt.Errorf("decode image metadata: %w", err)
		}

		body, err := txn.Get([]byte(bodyPrefix + key))
		if err != nil {
			return err
		}
		img.Body, err = body.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.ImageCacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.ImageCacheMisses.Inc()
		return nil, false, fmt.Errorf("get cached image: %w", err)
	}

	metrics.ImageCacheHits.Inc()
	return &img, true, nil
}

// Put stores img under key for the configured TTL.
func (c *Cache) Put(key string, img *Image) error {
	if c.maxBytes > 0 && int64(len(img.Body)) > c.maxBytes {
		return ErrTooLarge
	}
	if img.StoredAt.IsZero() {
		img.StoredAt = time.Now().UTC()
	}

	meta, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("marshal image metadata: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		metaEntry := badger.NewEntry([]byte(metaPrefix+key), meta)
		bodyEntry := badger.NewEntry([]byte(bodyPrefix+key), img.Body)
		if c.ttl > 0 {
			metaEntry = metaEntry.WithTTL(c.ttl)
			bodyEntry = bodyEntry.WithTTL(c.ttl)
		}
		if err := txn.SetEntry(metaEntry); err != nil {
			return err
		}
		return txn.SetEntry(bodyEntry)
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(metaPrefix + key)); err != nil {
			return err
		}
		return txn.Delete([]byte(bodyPrefix + key))
	})
}

// MaxBytes returns the largest image Put accepts, or 0 for no limit.
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// RunGC runs value log garbage collection until there is nothing left to rewrite.
func (c *Cache) RunGC() error {
	if c.inMemory {
		return nil
	}
	rewrites := 0
	for {
		err := c.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			metrics.ImageCacheGCRuns.WithLabelValues("error").Inc()
			return fmt.Errorf("image cache gc: %w", err)
		}
		rewrites++
	}
	if rewrites == 0 {
		metrics.ImageCacheGCRuns.WithLabelValues("noop").Inc()
	} else {
		metrics.ImageCacheGCRuns.WithLabelValues("rewritten").Inc()
	}
	return nil
}

// Serve runs garbage collection every GC interval until ctx is cancelled. It
// implements suture.Service.
func (c *Cache) Serve(ctx context.Context) error {
	if c.inMemory || c.gcInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.RunGC(); err != nil {
				l := logging.WithComponent("image-cache")
				l.Warn().Err(err).Msg("Image cache garbage collection failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (c *Cache) String() string {
	return "image-cache-gc"
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
