package server

import (
	"bytes"
	"context"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/raptor-search/go-raptor/fuzzy"
	"github.com/raptor-search/go-raptor/index"
	"github.com/raptor-search/go-raptor/metrics"
	"github.com/raptor-search/go-raptor/search"
)

const QueryParam = "q"

type Options struct {
	// MaxValues is the number of identifiers rendered per key.
	MaxValues int
	// MaxMatches stops the lookup after this many keys, 0 means no limit.
	MaxMatches int
}

var DefaultOptions = Options{
	MaxValues: 10,
}

type LookupHandler struct {
	searcher *search.Searcher
	opts     Options
	metrics  *metrics.Metrics
	logger   *log.Logger
}

func NewLookupHandler(searcher *search.Searcher, opts Options, m *metrics.Metrics) *LookupHandler {
	return &LookupHandler{
		searcher: searcher,
		opts:     opts,
		metrics:  m,
		logger:   log.WithPrefix("lookup"),
	}
}

func (h *LookupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := queryValue(r.URL.RawQuery, QueryParam)
	if err != nil {
		h.logger.Debug("malformed query parameter", "query", r.URL.RawQuery, "err", err)
		writeErrorResponse(w, http.StatusBadRequest, "malformed query parameter")
		return
	}
	if !ok {
		writeResponse(w, http.StatusOK, nil)
		return
	}

	query, err := search.Normalize(raw)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid query")
		return
	}
	distance := fuzzy.DistanceFor(query)

	started := time.Now()
	it, err := h.searcher.LookupWithDistance(query, distance)
	if err != nil {
		if errors.Cause(err) == fuzzy.ErrInvalidAutomatonParameters {
			writeErrorResponse(w, http.StatusBadRequest, "invalid query")
			return
		}
		h.logger.Error("lookup failed", "query", query, "err", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer it.Close()

	var body bytes.Buffer
	n, err := renderMatches(r.Context(), &body, it, h.opts)
	if err != nil {
		if errors.Cause(err) == context.Canceled || errors.Cause(err) == context.DeadlineExceeded {
			h.logger.Debug("lookup abandoned", "query", query, "matches", n)
			return
		}
		h.logger.Error("lookup failed", "query", query, "err", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.metrics.LookupDuration.WithLabelValues(strconv.Itoa(int(distance))).Observe(time.Since(started).Seconds())
	h.metrics.LookupMatches.Observe(float64(n))
	h.logger.Debug("lookup", "query", query, "distance", distance, "matches", n, "duration", time.Since(started))

	writeResponse(w, http.StatusOK, body.Bytes())
}

// queryValue returns the first value of the named parameter. Pairs are only
// separated by '&', and pairs of other parameters are never decoded, so they
// cannot fail the request.
func queryValue(rawQuery, name string) (string, bool, error) {
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err != nil || k != name {
			continue
		}
		value, err := url.QueryUnescape(value)
		if err != nil {
			return "", true, errors.Wrapf(err, "invalid value of %q", name)
		}
		return value, true, nil
	}
	return "", false, nil
}

// renderMatches writes one line per match, wrapped in a minimal document:
//
//	<html><body>cat [1, 2]<br/>cats [3]<br/></body></html>
func renderMatches(ctx context.Context, body *bytes.Buffer, it *index.Iterator, opts Options) (int, error) {
	body.WriteString("<html><body>")
	n := 0
	var buf []byte
	for it.Next() {
		if n&63 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}

		buf = AppendMatch(buf[:0], html.EscapeString(it.Key()), it.Values(), opts.MaxValues)
		buf = append(buf, "<br/>"...)
		body.Write(buf)

		n++
		if opts.MaxMatches > 0 && n >= opts.MaxMatches {
			break
		}
	}
	if err := it.Err(); err != nil {
		return n, err
	}
	body.WriteString("</body></html>")
	return n, nil
}

// AppendMatch appends "key [id1, id2]" to buf, with at most maxValues ids.
func AppendMatch(buf []byte, key string, values []uint64, maxValues int) []byte {
	if len(values) > maxValues {
		values = values[:maxValues]
	}
	buf = append(buf, key...)
	buf = append(buf, " ["...)
	for i, v := range values {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = strconv.AppendUint(buf, v, 10)
	}
	return append(buf, ']')
}
