package main

import (
	"math/rand/v2"
	"testing"
)

// scenarioMovies is the two-movie catalog used throughout the game tests.
func scenarioMovies() []Movie {
	return []Movie{
		{Name: "A", Year: "1999", Plot: "full A", ObfuscatedPlot: "obf A"},
		{Name: "B", Year: "2005", Plot: "full B", ObfuscatedPlot: "obf B"},
	}
}

// loadedCatalog returns a store that has already resolved with movies.
func loadedCatalog(t *testing.T, movies []Movie) *CatalogStore {
	t.Helper()

	c := newCatalogStore("test")
	c.loaded.Store(true)
	c.movies.Store(&movies)
	close(c.ready)

	return c
}

// failedCatalog returns a store whose load has already failed.
func failedCatalog(t *testing.T, err error) *CatalogStore {
	t.Helper()

	c := newCatalogStore("test")
	c.loaded.Store(true)
	c.err = &LoadError{Source: "test", Err: err}
	close(c.ready)

	return c
}

func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
