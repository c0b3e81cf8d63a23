package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// TotalCountHeader carries the collection total when the backend answers
// with a bare array body.
const TotalCountHeader = "X-Total-Count"

// PageRequest describes one page of a collection, with an optional free-text
// name filter.
type PageRequest struct {
	Page  int
	Size  int
	Query string
}

// Page is the canonical page shape every backend pagination envelope is
// decoded into.
type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Size  int
}

// DecodePage normalizes the backend's pagination envelopes into a canonical
// page of raw items. Recognized shapes, in priority order: a bare array body
// (total from the X-Total-Count header, falling back to array length), an
// object with an "items" array, an object with a "content" array, and an
// object with a "data" array (total from a sibling field or a nested "meta"
// object). Totals and page numbers are accepted as JSON numbers or numeric
// strings. An unrecognized body yields an empty page; rejecting genuinely
// malformed entity payloads is the caller's job.
func DecodePage(body []byte, header http.Header, req PageRequest) Page[json.RawMessage] {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			total := len(items)
			if n, ok := parseIntString(header.Get(TotalCountHeader)); ok {
				total = n
			}
			return Page[json.RawMessage]{Items: items, Total: total, Page: req.Page, Size: req.Size}
		}
	}

	var env struct {
		Items   []json.RawMessage `json:"items"`
		Content []json.RawMessage `json:"content"`
		Data    []json.RawMessage `json:"data"`
		Total   flexInt           `json:"total"`
		Page    flexInt           `json:"page"`
		Size    flexInt           `json:"size"`
		Meta    struct {
			Total flexInt `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Page[json.RawMessage]{Items: []json.RawMessage{}, Total: 0, Page: req.Page, Size: req.Size}
	}

	switch {
	case env.Items != nil:
		return Page[json.RawMessage]{
			Items: env.Items,
			Total: env.Total.or(len(env.Items)),
			Page:  env.Page.or(req.Page),
			Size:  env.Size.or(req.Size),
		}
	case env.Content != nil:
		return Page[json.RawMessage]{
			Items: env.Content,
			Total: env.Total.or(len(env.Content)),
			Page:  env.Page.or(req.Page),
			Size:  env.Size.or(req.Size),
		}
	case env.Data != nil:
		total := len(env.Data)
		if env.Total.set {
			total = env.Total.value
		} else if env.Meta.Total.set {
			total = env.Meta.Total.value
		}
		return Page[json.RawMessage]{Items: env.Data, Total: total, Page: req.Page, Size: req.Size}
	default:
		return Page[json.RawMessage]{Items: []json.RawMessage{}, Total: 0, Page: req.Page, Size: req.Size}
	}
}

// MapPage decodes every raw item of a page into T. A failing item makes the
// whole page fail: a list endpoint returning entities the service cannot
// read is a malformed response, not a partial success.
func MapPage[T any](page Page[json.RawMessage], decode func(json.RawMessage) (T, error)) (Page[T], error) {
	out := Page[T]{Total: page.Total, Page: page.Page, Size: page.Size, Items: make([]T, 0, len(page.Items))}
	for _, raw := range page.Items {
		item, err := decode(raw)
		if err != nil {
			return Page[T]{}, err
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// flexInt is a non-negative integer that unmarshals from a JSON number or a
// numeric string. Backends disagree on which one a total is.
type flexInt struct {
	set   bool
	value int
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	n, ok := parseIntString(s)
	if !ok {
		// Tolerated: a non-numeric value falls back like an absent one.
		return nil
	}
	f.set = true
	f.value = n
	return nil
}

func (f flexInt) or(fallback int) int {
	if f.set {
		return f.value
	}
	return fallback
}

func parseIntString(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v), true
	}
	return 0, false
}
