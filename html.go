/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

var homeTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

type homePage struct {
	Prefix    string
	Favicon   template.HTML
	Theme     string
	Selectors []ThemeSelector
	MinYear   int
	MaxYear   int
	Display   template.HTML
	Version   string
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		_ = getOrSetPlayerID(cfg, w, r)

		theme, selectors := loadTheme(cookieThemeStore{cfg: cfg, r: r})

		display, err := View{Kind: ViewLoading, Message: "Loading movies..."}.HTML()
		if err != nil {
			errs <- err
		}

		var body strings.Builder
		err = homeTemplate.Execute(&body, homePage{
			Prefix:    cfg.prefix,
			Favicon:   template.HTML(getFavicon(cfg)),
			Theme:     theme,
			Selectors: selectors,
			MinYear:   cfg.minYear,
			MaxYear:   cfg.maxYear,
			Display:   template.HTML(display),
			Version:   releaseVersion,
		})
		if err != nil {
			errs <- err

			http.Error(w, "An error has occurred. Please try again.", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(body.String()))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s, theme %q) to %s in %s",
			humanReadableSize(int64(written)),
			theme,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

type themeResponse struct {
	Theme     string          `json:"theme"`
	Selectors []ThemeSelector `json:"selectors"`
}

func serveSetTheme(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		tag := p.ByName("tag")

		if err := setTheme(cookieThemeStore{cfg: cfg, w: w}, tag); err != nil {
			errs <- err

			http.Error(w, "unable to store theme", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		err := json.NewEncoder(w).Encode(themeResponse{
			Theme:     tag,
			Selectors: themeSelectors(tag),
		})
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Theme set to %q for %s", tag, realIP(r))
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := path.Join("assets", path.Base(p.ByName("asset")))

		var contentType string
		switch strings.ToLower(path.Ext(fname)) {
		case ".css":
			contentType = "text/css; charset=utf-8"
		case ".js":
			contentType = "text/javascript; charset=utf-8"
		default:
			http.NotFound(w, r)

			return
		}

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", contentType)
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
