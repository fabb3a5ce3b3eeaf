/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Movie is a single catalog entry. Year is kept as received, since the
// scraper emits it as a string and hand-edited catalogs use numbers.
type Movie struct {
	Name           string `json:"name"`
	Year           Year   `json:"year"`
	Plot           string `json:"plot"`
	ObfuscatedPlot string `json:"obfuscated_plot"`
	Wiki           string `json:"wiki,omitempty"`
}

type Year string

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(s)
		return nil
	}

	// booleans, objects and arrays leave the year empty so the record
	// never matches a range instead of failing the whole catalog
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*y = ""
		return nil
	}
	*y = Year(n.String())

	return nil
}

// Int reports the year as an integer, and false if it does not parse as one.
func (y Year) Int() (int, bool) {
	text := strings.TrimSpace(string(y))

	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}

	// integral numbers written as floats, e.g. 1999.0 or 2.005e3
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// LoadError is returned when the catalog source cannot be read or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load movies from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Message is the text shown to players in place of the game.
func (e *LoadError) Message() string {
	return "Failed to load movies. Please try again later."
}

// CatalogStore holds the movie list for the lifetime of the process.
// It is written exactly once by Load and read concurrently afterwards.
type CatalogStore struct {
	source string
	client *http.Client

	movies atomic.Pointer[[]Movie]
	err    error
	ready  chan struct{}
	loaded atomic.Bool
}

func newCatalogStore(source string) *CatalogStore {
	return &CatalogStore{
		source: source,
		client: &http.Client{Timeout: 30 * time.Second},
		ready:  make(chan struct{}),
	}
}

// Load reads the configured source once. Calling it again is a no-op that
// returns the result of the first call.
func (c *CatalogStore) Load(ctx context.Context) error {
	if !c.loaded.CompareAndSwap(false, true) {
		<-c.ready
		return c.err
	}
	defer close(c.ready)

	movies, err := c.read(ctx)
	if err != nil {
		c.err = &LoadError{Source: c.source, Err: err}
		return c.err
	}

	c.movies.Store(&movies)

	return nil
}

// Ready is closed once Load has resolved, successfully or not.
func (c *CatalogStore) Ready() <-chan struct{} {
	return c.ready
}

func (c *CatalogStore) Loading() bool {
	select {
	case <-c.ready:
		return false
	default:
		return true
	}
}

// Err returns the load failure, if any. It is only meaningful after Ready.
func (c *CatalogStore) Err() error {
	if c.Loading() {
		return nil
	}
	return c.err
}

// Movies returns the loaded catalog, or nil before a successful load.
// Callers must not modify the returned slice.
func (c *CatalogStore) Movies() []Movie {
	p := c.movies.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (c *CatalogStore) read(ctx context.Context) ([]Movie, error) {
	switch {
	case strings.HasPrefix(c.source, "http://"), strings.HasPrefix(c.source, "https://"):
		return c.fetch(ctx)
	case isSQLitePath(c.source):
		return readSQLiteCatalog(ctx, c.source)
	}

	data, err := os.ReadFile(c.source)
	if err != nil {
		return nil, err
	}
	return decodeCatalog(data)
}

func (c *CatalogStore) fetch(ctx context.Context) ([]Movie, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return decodeCatalog(data)
}

func decodeCatalog(data []byte) ([]Movie, error) {
	var movies []Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, err
	}
	if movies == nil {
		movies = []Movie{}
	}
	return movies, nil
}

func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

const createMoviesTable = `CREATE TABLE IF NOT EXISTS movies (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	year TEXT NOT NULL,
	plot TEXT NOT NULL,
	obfuscated_plot TEXT NOT NULL,
	wiki TEXT NOT NULL DEFAULT ''
)`

func readSQLiteCatalog(ctx context.Context, path string) ([]Movie, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT name, year, plot, obfuscated_plot, wiki FROM movies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		var m Movie
		var year string
		if err := rows.Scan(&m.Name, &year, &m.Plot, &m.ObfuscatedPlot, &m.Wiki); err != nil {
			return nil, err
		}
		m.Year = Year(year)
		movies = append(movies, m)
	}

	return movies, rows.Err()
}

func writeSQLiteCatalog(ctx context.Context, path string, movies []Movie) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createMoviesTable); err != nil {
		return fmt.Errorf("failed to create movies table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movies`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO movies (name, year, plot, obfuscated_plot, wiki) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range movies {
		if _, err := stmt.ExecContext(ctx, m.Name, string(m.Year), m.Plot, m.ObfuscatedPlot, m.Wiki); err != nil {
			return fmt.Errorf("failed to insert %q: %w", m.Name, err)
		}
	}

	return tx.Commit()
}
