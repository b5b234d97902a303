package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// RespondWithError writes an error response in JSON format
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// RespondWithErrorKind writes an error response that also carries a stable
// machine-readable kind, e.g. "validation" or "not_found".
func RespondWithErrorKind(w http.ResponseWriter, code int, kind, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message, "kind": kind})
}

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Page is a page number / size pair read from the query string.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads ?page= and ?page_size=, falling back to defaults on
// missing or malformed values and capping the size at MaxPageSize.
func ParsePage(r *http.Request) Page {
	p := Page{Number: 1, Size: DefaultPageSize}

	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && s > 0 {
		p.Size = s
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Paginated is the list envelope returned by every paginated endpoint.
type Paginated[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func NewPaginated[T any](items []T, total int, page Page) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{Count: total, Page: page.Number, PageSize: page.Size, Results: items}
}

// IDParam parses a positive integer path parameter.
func IDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
