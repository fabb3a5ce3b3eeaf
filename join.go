/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// joinedRecord is one merged movie file. Keys are kept verbatim so fields
// the game does not read still reach the JSON catalog.
type joinedRecord map[string]json.RawMessage

// joinCatalog merges every movie file with the same-named file in the
// obfuscated directory. Keys from the obfuscated file win. Movies without
// a partner are returned by name in missing.
func joinCatalog(cfg *Config, moviesDir, obfuscatedDir string) (records []joinedRecord, missing []string, err error) {
	files, err := filepath.Glob(filepath.Join(moviesDir, "*.json"))
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(files)

	records = []joinedRecord{}

	for _, file := range files {
		name := filepath.Base(file)
		partner := filepath.Join(obfuscatedDir, name)

		if !fileExists(partner) {
			missing = append(missing, name)
			continue
		}

		combined := joinedRecord{}
		for _, path := range []string{file, partner} {
			var fields map[string]json.RawMessage
			if err := readJSONFile(path, &fields); err != nil {
				return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			for k, v := range fields {
				combined[k] = v
			}
		}

		logf(cfg, "JOIN: Processed %s", name)

		records = append(records, combined)
	}

	return records, missing, nil
}

// joinedMovies narrows the merged records to the catalog columns.
func joinedMovies(records []joinedRecord) ([]Movie, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return decodeCatalog(data)
}

func runJoin(ctx context.Context, cfg *Config, jc *joinConfig) error {
	if _, err := os.Stat(jc.movies); err != nil {
		return err
	}

	records, missing, err := joinCatalog(cfg, jc.movies, jc.obfuscated)
	if err != nil {
		return err
	}

	for _, name := range missing {
		log.Printf("Warning: No obfuscated file found for %s", name)
	}

	if isSQLitePath(jc.output) {
		movies, err := joinedMovies(records)
		if err != nil {
			return err
		}
		if err := writeSQLiteCatalog(ctx, jc.output, movies); err != nil {
			return err
		}
	} else {
		written, err := writeJSONFile(jc.output, records)
		if err != nil {
			return err
		}
		logf(cfg, "JOIN: Wrote %s to %s", humanReadableSize(written), jc.output)
	}

	log.Printf("Successfully created %s with %d movies", jc.output, len(records))

	return nil
}
