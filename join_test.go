package main

import (
	"context"
	"path/filepath"
	"testing"
)

func writeJoinFixture(t *testing.T) (moviesDir, obfuscatedDir string) {
	t.Helper()

	root := t.TempDir()
	moviesDir = filepath.Join(root, "movie_data")
	obfuscatedDir = filepath.Join(root, "obfuscated_movie_plot")

	files := map[string]any{
		filepath.Join(moviesDir, "1999_A.json"):      scrapedMovie{Year: "1999", Name: "A", Plot: "full A", Wiki: "https://en.wikipedia.org/wiki/A"},
		filepath.Join(moviesDir, "2005_B.json"):      scrapedMovie{Year: "2005", Name: "B", Plot: "full B"},
		filepath.Join(obfuscatedDir, "1999_A.json"):  map[string]string{"obfuscated_plot": "obf A", "plot": "full A, edited", "model": "rewriter-1"},
		filepath.Join(obfuscatedDir, "1980_Z.json"):  map[string]string{"obfuscated_plot": "orphan"},
		filepath.Join(moviesDir, "notes.txt.backup"): "ignored",
	}

	for path, v := range files {
		if _, err := writeJSONFile(path, v); err != nil {
			t.Fatal(err)
		}
	}

	return moviesDir, obfuscatedDir
}

func TestJoinCatalog(t *testing.T) {
	moviesDir, obfuscatedDir := writeJoinFixture(t)

	records, missing, err := joinCatalog(testConfig(), moviesDir, obfuscatedDir)
	if err != nil {
		t.Fatalf("joinCatalog: %v", err)
	}

	if len(missing) != 1 || missing[0] != "2005_B.json" {
		t.Fatalf("missing = %v", missing)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if string(records[0]["model"]) != `"rewriter-1"` {
		t.Fatalf("extra key not carried through: %s", records[0]["model"])
	}

	movies, err := joinedMovies(records)
	if err != nil {
		t.Fatalf("joinedMovies: %v", err)
	}

	m := movies[0]
	if m.Name != "A" || m.Year != "1999" || m.ObfuscatedPlot != "obf A" || m.Wiki == "" {
		t.Fatalf("unexpected movie %+v", m)
	}
	if m.Plot != "full A, edited" {
		t.Fatalf("obfuscated file should win on shared keys, got plot %q", m.Plot)
	}
}

func TestRunJoin(t *testing.T) {
	moviesDir, obfuscatedDir := writeJoinFixture(t)
	out := t.TempDir()

	tests := []struct {
		name   string
		output string
		read   func(path string) ([]Movie, error)
	}{
		{
			name:   "json",
			output: filepath.Join(out, "db.json"),
			read: func(path string) ([]Movie, error) {
				var movies []Movie
				err := readJSONFile(path, &movies)
				return movies, err
			},
		},
		{
			name:   "sqlite",
			output: filepath.Join(out, "movies.sqlite"),
			read: func(path string) ([]Movie, error) {
				return readSQLiteCatalog(context.Background(), path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jc := &joinConfig{movies: moviesDir, obfuscated: obfuscatedDir, output: tt.output}

			if err := runJoin(context.Background(), testConfig(), jc); err != nil {
				t.Fatalf("runJoin: %v", err)
			}

			movies, err := tt.read(tt.output)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if len(movies) != 1 || movies[0].Name != "A" || movies[0].ObfuscatedPlot != "obf A" {
				t.Fatalf("unexpected catalog %+v", movies)
			}

			if tt.name == "json" {
				var raw []map[string]any
				if err := readJSONFile(tt.output, &raw); err != nil {
					t.Fatal(err)
				}
				if raw[0]["model"] != "rewriter-1" {
					t.Fatalf("json catalog dropped extra keys: %v", raw[0])
				}
			}

			c := newCatalogStore(tt.output)
			if err := c.Load(context.Background()); err != nil {
				t.Fatalf("catalog does not load: %v", err)
			}
		})
	}
}

func TestRunJoin_MissingDirectory(t *testing.T) {
	jc := &joinConfig{
		movies:     filepath.Join(t.TempDir(), "nope"),
		obfuscated: t.TempDir(),
		output:     filepath.Join(t.TempDir(), "db.json"),
	}

	if err := runJoin(context.Background(), testConfig(), jc); err == nil {
		t.Fatal("expected an error for a missing movies directory")
	}
}
