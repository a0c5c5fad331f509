package http

import (
	"math"
	"net/http"
	"strconv"

	"company-quiz-service/internal/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pathID parses a positive integer path wildcard.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter; missing yields 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return id, nil
}

type pageRequest struct {
	number int
	size   int
}

func (p pageRequest) bounds() domain.Page {
	return domain.Page{Limit: p.size, Offset: (p.number - 1) * p.size}
}

func pageParams(r *http.Request) (pageRequest, error) {
	p := pageRequest{number: 1, size: defaultPageSize}
	q := r.URL.Query()
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, &domain.ValidationError{Fields: map[string]string{"page": "invalid page"}}
		}
		p.number = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, &domain.ValidationError{Fields: map[string]string{"page_size": "must be a positive integer"}}
		}
		p.size = min(n, maxPageSize)
	}
	if p.number > math.MaxInt/p.size {
		return p, &domain.ValidationError{Fields: map[string]string{"page": "invalid page"}}
	}
	return p, nil
}

type pageResponse[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func newPage[T any](r *http.Request, p pageRequest, items []T, total int) pageResponse[T] {
	resp := pageResponse[T]{Count: total, Results: items}
	if p.number*p.size < total {
		resp.Next = pageLink(r, p.number+1)
	}
	if p.number > 1 {
		resp.Previous = pageLink(r, p.number-1)
	}
	return resp
}

func pageLink(r *http.Request, number int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(number))
	u.RawQuery = q.Encode()
	link := u.RequestURI()
	return &link
}
