// Package fetch enriches news items with extracted article text before
// clustering. Enrichment is best effort: a fetch that fails leaves the item
// with whatever snippet it arrived with.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"briefcast/types"
)

const workerCount = 5

// Cache stores extracted article text keyed by URL hash. Nil-safe from the
// fetcher's side; a fetcher without a cache simply refetches.
type Cache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

// Fetcher downloads article pages and extracts readable text.
type Fetcher struct {
	client   *http.Client
	cache    Cache
	maxBytes int64
}

// New builds a fetcher. cache may be nil.
func New(timeout time.Duration, maxBytes int64, cache Cache) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 256 * 1024
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		maxBytes: maxBytes,
	}
}

// Enrich fills Content for every item with a URL, using a small worker
// pool. Items whose pages cannot be fetched or parsed are left untouched.
func (f *Fetcher) Enrich(ctx context.Context, items []*types.NewsItem) {
	var wg sync.WaitGroup
	itemChan := make(chan *types.NewsItem, len(items))

	for i := 0; i < workerCount; i++ {
		go func() {
			for item := range itemChan {
				if err := f.enrichOne(ctx, item); err != nil {
					log.Printf("fetch %s: %v", item.URL, err)
				}
				wg.Done()
			}
		}()
	}

	for _, item := range items {
		if item.URL == "" || item.Content != "" {
			continue
		}
		wg.Add(1)
		itemChan <- item
	}

	wg.Wait()
	close(itemChan)
}

func (f *Fetcher) enrichOne(ctx context.Context, item *types.NewsItem) error {
	if f.cache != nil {
		if text, ok := f.cache.Get(ctx, item.URL); ok {
			item.Content = text
			return nil
		}
	}

	text, err := f.extract(ctx, item.URL)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	item.Content = text
	if f.cache != nil {
		f.cache.Set(ctx, item.URL, text)
	}
	return nil
}

func (f *Fetcher) extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "briefcast/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, f.maxBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability extraction failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
