package document

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Position is a point in the (partition key, id) ordering every store scans in.
// The zero value is the start of the ordering.
type Position struct {
	PartitionKey string `json:"pk"`
	ID           string `json:"id"`
}

// IsZero reports whether p is the start of the ordering.
func (p Position) IsZero() bool {
	return p.PartitionKey == "" && p.ID == ""
}

// After reports whether key sorts strictly after p.
func (p Position) After(key Key) bool {
	if key.PartitionKey != p.PartitionKey {
		return key.PartitionKey > p.PartitionKey
	}
	return key.ID > p.ID
}

// EncodeContinuationToken returns the opaque token resuming after p.
func EncodeContinuationToken(p Position) string {
	raw, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeContinuationToken parses token. A token issued for another partition is
// rejected when partitionKey is set.
func DecodeContinuationToken(token, partitionKey string) (Position, error) {
	if token == "" {
		return Position{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidContinuationToken, err)
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidContinuationToken, err)
	}
	if p.ID == "" {
		return Position{}, fmt.Errorf("%w: missing id", ErrInvalidContinuationToken)
	}
	if partitionKey != "" && p.PartitionKey != partitionKey {
		return Position{}, fmt.Errorf("%w: token belongs to partition %q", ErrInvalidContinuationToken, p.PartitionKey)
	}
	return p, nil
}
