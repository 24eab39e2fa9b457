package jquants

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"KabuFeed/internal/domain/models"
	applogger "KabuFeed/pkg/logger"
	"KabuFeed/pkg/util"
)

// DailyQuotesRange fetches daily bars for every day in [from, to],
// fanning the per-day requests out over a bounded worker pool. Non-business
// days simply return no rows. Results come back sorted by (Code, Date).
func (c *Client) DailyQuotesRange(ctx context.Context, from, to string) ([]models.DailyQuote, error) {
	days, err := c.rangeDays(from, to)
	if err != nil {
		return nil, err
	}

	perDay := make([][]models.DailyQuote, len(days))
	err = c.forEachDay(ctx, days, func(ctx context.Context, i int, day string) error {
		rows, err := c.DailyQuotes(ctx, "", day, "", "")
		if err != nil {
			return fmt.Errorf("daily_quotes %s: %w", day, err)
		}
		perDay[i] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []models.DailyQuote
	for _, rows := range perDay {
		out = append(out, rows...)
	}
	sortDailyQuotes(out)
	return out, nil
}

// StatementsRange fetches statement summaries for every disclosure day in
// [from, to]. When a cache directory is configured, each fetched day is
// stored as gzipped JSON under <cacheDir>/<yyyy>/ and reused on later runs.
func (c *Client) StatementsRange(ctx context.Context, from, to string) ([]models.Statement, error) {
	days, err := c.rangeDays(from, to)
	if err != nil {
		return nil, err
	}

	perDay := make([][]models.Statement, len(days))
	err = c.forEachDay(ctx, days, func(ctx context.Context, i int, day string) error {
		if rows, ok := c.cachedStatements(day); ok {
			perDay[i] = rows
			return nil
		}
		rows, err := c.Statements(ctx, "", day)
		if err != nil {
			return fmt.Errorf("statements %s: %w", day, err)
		}
		c.storeStatements(day, rows)
		perDay[i] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []models.Statement
	for _, rows := range perDay {
		out = append(out, rows...)
	}
	sortStatements(out)
	return out, nil
}

func (c *Client) rangeDays(from, to string) ([]string, error) {
	start, err := util.ParseDay(from)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	end, err := util.ParseDay(to)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	days := util.DaysBetween(start, end)
	if days == nil {
		return nil, fmt.Errorf("invalid range: %s after %s", from, to)
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format("2006-01-02")
	}
	return out, nil
}

// forEachDay runs fn for every day with bounded parallelism. The first
// error cancels the remaining work.
func (c *Client) forEachDay(ctx context.Context, days []string, fn func(ctx context.Context, i int, day string) error) error {
	workers := c.maxWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(days) {
		workers = len(days)
	}
	if workers == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		i   int
		day string
	}
	jobs := make(chan job)
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := fn(ctx, j.i, j.day); err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
			}
		}()
	}

feed:
	for i, day := range days {
		select {
		case jobs <- job{i: i, day: day}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	return ctx.Err()
}

func (c *Client) statementsCachePath(day string) string {
	d, err := util.ParseDay(day)
	if err != nil {
		return ""
	}
	return filepath.Join(c.cacheDir, d.Format("2006"), fmt.Sprintf("statements_%s.json.gz", util.FormatDay(d)))
}

func (c *Client) cachedStatements(day string) ([]models.Statement, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	path := c.statementsCachePath(day)
	if path == "" {
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	var rows []models.Statement
	if err := json.NewDecoder(zr).Decode(&rows); err != nil {
		c.log.Warn("jquants: corrupt statements cache", applogger.String("path", path), applogger.Error(err))
		return nil, false
	}
	return rows, true
}

func (c *Client) storeStatements(day string, rows []models.Statement) {
	if c.cacheDir == "" {
		return
	}
	// Only finished days are safe to cache; today may still gain rows.
	d, err := util.ParseDay(day)
	if err != nil || !d.Before(c.now().UTC().Truncate(24*time.Hour)) {
		return
	}

	path := c.statementsCachePath(day)
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.log.Warn("jquants: create cache dir", applogger.Error(err))
		return
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		c.log.Warn("jquants: create cache file", applogger.Error(err))
		return
	}
	zw := gzip.NewWriter(f)
	encErr := json.NewEncoder(zw).Encode(rows)
	if cerr := zw.Close(); encErr == nil {
		encErr = cerr
	}
	if cerr := f.Close(); encErr == nil {
		encErr = cerr
	}
	if encErr != nil {
		c.log.Warn("jquants: write cache", applogger.Error(encErr))
		os.Remove(tmp)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		c.log.Warn("jquants: finalize cache", applogger.Error(err))
		os.Remove(tmp)
	}
}
