package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const report_http_write = "http.write"

type HandlerOptions struct {
	// CacheTTL is how long successful read responses are served from memory, 0
	// disables the cache.
	CacheTTL  time.Duration
	CacheSize int
}

type handler struct {
	svc   *Service
	cache *expirable.LRU[string, []byte]
}

// Handler serves every facade operation as JSON. Failed operations answer with
// 502 and the {"error": "..."} body.
func (s *Service) Handler(opts HandlerOptions) http.Handler {
	h := handler{svc: s}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 64
		}
		h.cache = expirable.NewLRU[string, []byte](size, nil, opts.CacheTTL)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/caskan", func(r chi.Router) {
		r.Get("/home", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.CaskanHome(r.Context()))
		}))
		r.Get("/schedule", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.CaskanSchedule(r.Context()))
		}))
		r.Get("/reservations", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.CaskanReservations(r.Context()))
		}))
		r.Get("/rooms", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.CaskanRooms(r.Context()))
		}))
		r.Get("/casts", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.CaskanCasts(r.Context()))
		}))
		r.Get("/shifts/{year}/{month}", func(w http.ResponseWriter, r *http.Request) {
			year, month, err := yearMonth(r)
			if err != nil {
				h.write(w, http.StatusBadRequest, errorBody(err.Error()))
				return
			}
			// every aggregation refetches the room map and all weeks, never cached
			h.respond(w)(encode(s.CaskanMonthlyShift(r.Context(), year, month)))
		})
		r.Get("/shifts/{year}/{month}/latest", func(w http.ResponseWriter, r *http.Request) {
			year, month, err := yearMonth(r)
			if err != nil {
				h.write(w, http.StatusBadRequest, errorBody(err.Error()))
				return
			}
			h.respond(w)(encode(s.LatestMonthlySnapshot(r.Context(), year, month)))
		})
	})

	r.Route("/estama", func(r chi.Router) {
		r.Get("/dashboard", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.EstamaDashboard(r.Context()))
		}))
		r.Get("/guidance", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.EstamaGuidance(r.Context()))
		}))
		r.Get("/schedule", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.EstamaSchedule(r.Context()))
		}))
		r.Get("/reservations", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.EstamaReservations(r.Context()))
		}))
		r.Get("/news", cached(h, func(r *http.Request) ([]byte, bool, error) {
			return encode(s.EstamaNews(r.Context()))
		}))
		// side effecting, never cached
		r.Post("/appeal", func(w http.ResponseWriter, r *http.Request) {
			h.respond(w)(encode(s.EstamaAppeal(r.Context())))
		})
	})

	return r
}

func yearMonth(r *http.Request) (int, int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		return 0, 0, fmt.Errorf("invalid year: %q", chi.URLParam(r, "year"))
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month: %q", chi.URLParam(r, "month"))
	}
	return year, month, nil
}

func errorBody(message string) []byte {
	body, _ := json.Marshal(map[string]string{"error": message})
	return body
}

// encode returns the json of a result and whether the result was a success.
func encode[T any](res Result[T]) ([]byte, bool, error) {
	body, err := json.Marshal(res)
	return body, res.OK(), err
}

func (h handler) write(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(body)
	if err != nil {
		h.svc.tel.ReportWarning(report_http_write, err)
	}
}

func (h handler) respond(w http.ResponseWriter) func(body []byte, ok bool, err error) {
	return func(body []byte, ok bool, err error) {
		if err != nil {
			h.write(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		if !ok {
			h.write(w, http.StatusBadGateway, body)
			return
		}
		h.write(w, http.StatusOK, body)
	}
}

// cached serves successful responses of fn from the cache (if enabled), keyed by
// request path.
func cached(h handler, fn func(r *http.Request) ([]byte, bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if h.cache != nil {
			body, ok := h.cache.Get(key)
			if ok {
				w.Header().Set("X-Cache", "hit")
				h.write(w, http.StatusOK, body)
				return
			}
		}

		body, ok, err := fn(r)
		if err == nil && ok && h.cache != nil {
			h.cache.Add(key, bytes.Clone(body))
		}
		h.respond(w)(body, ok, err)
	}
}
