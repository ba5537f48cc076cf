package document

import "net/http"

// Response is the immutable result of a repository read or command. It carries the
// status code the store reported, the request charge of the call, the documents it
// returned and their entity projection, computed once at construction.
type Response[D, E any] struct {
	statusCode    int
	requestCharge float64
	documents     []D
	entities      []E
}

// NewResponse builds a response and maps docs through mapper.
func NewResponse[D, E any](statusCode int, requestCharge float64, docs []D, mapper Mapper[D, E]) (*Response[D, E], error) {
	entities, err := MapAll(mapper, docs)
	if err != nil {
		return nil, err
	}
	copied := make([]D, len(docs))
	copy(copied, docs)
	return &Response[D, E]{
		statusCode:    statusCode,
		requestCharge: requestCharge,
		documents:     copied,
		entities:      entities,
	}, nil
}

// EmptyResponse is the response of a call that never reached the store:
// status 406, charge 0, no documents.
func EmptyResponse[D, E any]() *Response[D, E] {
	return &Response[D, E]{statusCode: http.StatusNotAcceptable, documents: []D{}, entities: []E{}}
}

// NotFoundResponse is the response of a point read that found nothing.
func NotFoundResponse[D, E any](requestCharge float64) *Response[D, E] {
	return &Response[D, E]{statusCode: http.StatusNotFound, requestCharge: requestCharge, documents: []D{}, entities: []E{}}
}

// StatusCode is the HTTP-style status the store reported.
func (r *Response[D, E]) StatusCode() int { return r.statusCode }

// RequestCharge is the cost the store billed for the call, 0 when it reports none.
func (r *Response[D, E]) RequestCharge() float64 { return r.requestCharge }

// Documents returns the raw documents in store order.
func (r *Response[D, E]) Documents() []D {
	out := make([]D, len(r.documents))
	copy(out, r.documents)
	return out
}

// Entities returns the mapped entities, parallel to Documents.
func (r *Response[D, E]) Entities() []E {
	out := make([]E, len(r.entities))
	copy(out, r.entities)
	return out
}

// Len is the number of documents in the response.
func (r *Response[D, E]) Len() int { return len(r.documents) }

// Found reports whether at least one document came back.
func (r *Response[D, E]) Found() bool { return len(r.documents) > 0 }

// First returns the first entity, if any.
func (r *Response[D, E]) First() (E, bool) {
	if len(r.entities) == 0 {
		var zero E
		return zero, false
	}
	return r.entities[0], true
}

// FirstDocument returns the first raw document, if any.
func (r *Response[D, E]) FirstDocument() (D, bool) {
	if len(r.documents) == 0 {
		var zero D
		return zero, false
	}
	return r.documents[0], true
}

// Page is a query response plus the token to fetch the next page.
// ContinuationToken is empty once the final page has been returned.
type Page[D, E any] struct {
	*Response[D, E]
	ContinuationToken string
}

// HasMore reports whether another page may be requested.
func (p *Page[D, E]) HasMore() bool {
	return p.ContinuationToken != ""
}
