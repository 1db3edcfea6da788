package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"parsemill/internal/domain"
)

// EncodeResult serializes a parse result for storage in any tier.
func EncodeResult(r *domain.Result) ([]byte, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}

// DecodeResult deserializes a tier value back into a parse result.
func DecodeResult(b []byte) (*domain.Result, error) {
	var r domain.Result
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
