/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"strconv"
	"strings"
)

// ValidationError reports user input that cannot be used to pick a round.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var errInvertedBounds = &ValidationError{Message: "Minimum year cannot be greater than maximum year."}

type Bounds struct {
	Min int
	Max int
}

// parseBounds reports false if either side is not an integer.
func parseBounds(minText, maxText string) (Bounds, bool) {
	lo, err := strconv.Atoi(strings.TrimSpace(minText))
	if err != nil {
		return Bounds{}, false
	}

	hi, err := strconv.Atoi(strings.TrimSpace(maxText))
	if err != nil {
		return Bounds{}, false
	}

	return Bounds{Min: lo, Max: hi}, true
}

// filterMovies returns every movie released in [minText, maxText], in
// catalog order. Non-numeric bounds match nothing; inverted bounds also
// return a ValidationError.
func filterMovies(catalog []Movie, minText, maxText string) ([]Movie, error) {
	b, ok := parseBounds(minText, maxText)
	if !ok {
		return nil, nil
	}

	if b.Min > b.Max {
		return nil, errInvertedBounds
	}

	return filterByYear(catalog, b), nil
}

func filterByYear(catalog []Movie, b Bounds) []Movie {
	matches := make([]Movie, 0, len(catalog))
	for _, m := range catalog {
		year, ok := m.Year.Int()
		if !ok {
			continue
		}
		if year >= b.Min && year <= b.Max {
			matches = append(matches, m)
		}
	}
	return matches
}
