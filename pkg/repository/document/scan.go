package document

import (
	"context"
	"fmt"
	"net/http"
)

// batch is one store round trip of a keyset scan, in ascending (partition key, id) order.
type batch[D Document] struct {
	Documents     []D
	Next          Position
	Done          bool
	RequestCharge float64
}

// fetchFunc returns up to limit documents positioned strictly after after.
type fetchFunc[D Document] func(ctx context.Context, after Position, limit int) (batch[D], error)

// scan pages req over fetch. When local is set each fetched document is tested against
// the specification in-process, otherwise the store is trusted to have filtered.
// After a full page scan keeps reading until it sees one more match, so the token is
// empty exactly when nothing follows the page.
func scan[D Document](ctx context.Context, req QueryRequest[D], local bool, fetch fetchFunc[D]) (QueryResult[D], error) {
	after, err := DecodeContinuationToken(req.ContinuationToken, req.PartitionKey)
	if err != nil {
		return QueryResult[D]{}, err
	}
	skip := req.Skip
	if req.ContinuationToken != "" || skip < 0 {
		skip = 0
	}
	pageLimit := req.MaxItemCount
	if pageLimit <= 0 {
		pageLimit = DefaultPageSize
	}

	out := QueryResult[D]{Result: Result[D]{StatusCode: http.StatusOK, Documents: []D{}}}
	var last Position
	full := false

	for {
		if err := ctx.Err(); err != nil {
			return QueryResult[D]{}, err
		}

		limit := pageLimit
		if req.Take > 0 && !local {
			if remaining := skip + req.Take - len(out.Documents) + 1; remaining < limit {
				limit = remaining
			}
		}

		b, err := fetch(ctx, after, limit)
		if err != nil {
			return QueryResult[D]{}, err
		}
		out.RequestCharge += b.RequestCharge

		for _, doc := range b.Documents {
			if local && req.Specification != nil && !req.Specification.IsSatisfiedBy(doc) {
				continue
			}
			if full {
				out.ContinuationToken = EncodeContinuationToken(last)
				return out, nil
			}
			if skip > 0 {
				skip--
				continue
			}
			out.Documents = append(out.Documents, doc)
			last = Position{PartitionKey: doc.PartitionKey(), ID: doc.DocumentID()}
			if req.Take > 0 && len(out.Documents) == req.Take {
				full = true
			}
		}

		if b.Done {
			return out, nil
		}
		if b.Next == after {
			return QueryResult[D]{}, fmt.Errorf("document scan made no progress after %+v", after)
		}
		after = b.Next
	}
}
