package server

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nhalm/logos"
	"github.com/nhalm/logos/quote"
	"github.com/nhalm/logos/web"
)

// MaxListItems caps the items returned by /api/quotes.
const MaxListItems = 100

// Item is a quote as returned by the API, with its derived identifier.
type Item struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

func newItem(q quote.Quote) Item {
	return Item{
		ID:       q.ID(),
		Text:     q.Text,
		Author:   q.Author,
		Category: q.Category,
	}
}

// ListResponse is the body of /api/quotes. Count is the number of matches
// before truncation to MaxListItems.
type ListResponse struct {
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// Query parameters are bound but never rejected. Values the filters do not
// recognise simply match nothing or impose no restriction.
type filterQuery struct {
	Category string `query:"category"`
	Length   string `query:"length"`
	Q        string `query:"q"`
}

func (f filterQuery) criteria() quote.Criteria {
	return quote.Criteria{Category: f.Category, Length: f.Length, Q: f.Q}
}

type quoteQuery struct {
	ID       string `query:"id"`
	Category string `query:"category"`
	Length   string `query:"length"`
	Q        string `query:"q"`
	Mode     string `query:"mode"`
}

func (q quoteQuery) criteria() quote.Criteria {
	return quote.Criteria{Category: q.Category, Length: q.Length, Q: q.Q}
}

func (s *Server) getQuote(_ http.ResponseWriter, r *http.Request) {
	var params quoteQuery
	if !logos.Query(r, &params) {
		return
	}

	if params.ID != "" {
		q, ok := s.ds.Lookup(params.ID)
		if !ok {
			logos.SetError(r, logos.ErrNotFound.With("Quote not found"))
			return
		}
		s.served("quote", 1)
		logos.SetResponse(r, http.StatusOK, newItem(q))
		return
	}

	matches := quote.Filter(s.ds.Quotes(), params.criteria())
	q, err := quote.Pick(matches, params.Mode, s.now())
	if errors.Is(err, quote.ErrEmpty) {
		logos.SetError(r, logos.ErrNotFound.With("No quotes matched filters"))
		return
	}
	if err != nil {
		logos.SetError(r, logos.ErrInternal)
		return
	}

	s.served("quote", 1)
	logos.SetResponse(r, http.StatusOK, newItem(q))
}

func (s *Server) listQuotes(_ http.ResponseWriter, r *http.Request) {
	var params filterQuery
	if !logos.Query(r, &params) {
		return
	}

	matches := quote.Filter(s.ds.Quotes(), params.criteria())
	page := matches[:min(len(matches), MaxListItems)]

	items := make([]Item, 0, len(page))
	for _, q := range page {
		items = append(items, newItem(q))
	}

	s.served("quotes", len(items))
	logos.SetResponse(r, http.StatusOK, ListResponse{
		Count: len(matches),
		Items: items,
	})
}

func (s *Server) health(_ http.ResponseWriter, r *http.Request) {
	logos.SetResponse(r, http.StatusOK, map[string]any{
		"status":   "ok",
		"quotes":   s.ds.Len(),
		"fallback": s.ds.Fallback(),
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := web.Index.Execute(&buf, web.IndexData{
		Count:      s.ds.Len(),
		Categories: s.ds.Categories(),
		Fallback:   s.ds.Fallback(),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "render landing page", "error", err)
		logos.SetError(r, logos.ErrInternal)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) served(endpoint string, n int) {
	if s.metrics != nil {
		s.metrics.QuotesServed.WithLabelValues(endpoint).Add(float64(n))
	}
}
