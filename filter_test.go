package main

import (
	"errors"
	"strconv"
	"testing"
)

func names(movies []Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterMovies(t *testing.T) {
	catalog := []Movie{
		{Name: "Wings", Year: "1927"},
		{Name: "Casablanca", Year: "1943"},
		{Name: "Broken", Year: "n/a"},
		{Name: "Rebecca", Year: "1940"},
		{Name: "Blank", Year: ""},
		{Name: "Gigi", Year: " 1958 "},
	}

	tests := []struct {
		name    string
		min     string
		max     string
		want    []string
		wantErr bool
	}{
		{name: "whole range keeps catalog order", min: "1900", max: "2000", want: []string{"Wings", "Casablanca", "Rebecca", "Gigi"}},
		{name: "inclusive bounds", min: "1940", max: "1943", want: []string{"Casablanca", "Rebecca"}},
		{name: "single year", min: "1927", max: "1927", want: []string{"Wings"}},
		{name: "no match", min: "1800", max: "1850", want: []string{}},
		{name: "padded input", min: " 1950 ", max: "1960", want: []string{"Gigi"}},
		{name: "non-numeric min", min: "abc", max: "2000", want: []string{}},
		{name: "non-numeric max", min: "1900", max: "", want: []string{}},
		{name: "inverted", min: "2000", max: "1900", want: []string{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterMovies(catalog, tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if !equalStrings(names(got), tt.want) {
				t.Fatalf("got %v, want %v", names(got), tt.want)
			}
		})
	}
}

func TestFilterMovies_InvertedRangeIgnoresCatalog(t *testing.T) {
	for _, catalog := range [][]Movie{nil, scenarioMovies()} {
		got, err := filterMovies(catalog, "2010", "2000")

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no movies, got %v", names(got))
		}
	}
}

func TestFilterMovies_MatchesExactlyTheRange(t *testing.T) {
	rng := seededRand(7)

	catalog := make([]Movie, 200)
	for i := range catalog {
		year := Year(strconv.Itoa(1900 + rng.IntN(130)))
		if rng.IntN(10) == 0 {
			year = "unknown"
		}
		catalog[i] = Movie{Name: strconv.Itoa(i), Year: year}
	}

	for range 50 {
		lo := 1900 + rng.IntN(130)
		hi := lo + rng.IntN(30)

		got, err := filterMovies(catalog, strconv.Itoa(lo), strconv.Itoa(hi))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var want []string
		for _, m := range catalog {
			if y, ok := m.Year.Int(); ok && y >= lo && y <= hi {
				want = append(want, m.Name)
			}
		}
		if want == nil {
			want = []string{}
		}

		if !equalStrings(names(got), want) {
			t.Fatalf("[%d, %d]: got %v, want %v", lo, hi, names(got), want)
		}
	}
}
