package trace

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// asUint64 reads a JSON numeric leaf. Traces decoded with UseNumber carry
// json.Number, anything else funneled through encoding/json carries
// float64; both must be non-negative integers.
func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= 1<<64 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

// decodeBytes converts a JSON array of integers into bytes. Every element
// must sit in [0, 255].
func decodeBytes(field string, values []interface{}) ([]byte, error) {
	data := make([]byte, len(values))
	for i, v := range values {
		n, ok := asUint64(v)
		if !ok || n > 255 {
			return nil, fmt.Errorf("%w: %s[%d] is not a byte: %v", ErrBadStep, field, i, v)
		}
		data[i] = byte(n)
	}
	return data, nil
}

// The to* converters read fixed-width big-endian values and reject any
// other width, so stray or missing payload bytes never decode silently.

func toU8(field string, data []byte) (uint8, error) {
	if len(data) != 1 {
		return 0, widthError(field, data, 1)
	}
	return data[0], nil
}

func toU16(field string, data []byte) (uint16, error) {
	if len(data) != 2 {
		return 0, widthError(field, data, 2)
	}
	return binary.BigEndian.Uint16(data), nil
}

func toU32(field string, data []byte) (uint32, error) {
	if len(data) != 4 {
		return 0, widthError(field, data, 4)
	}
	return binary.BigEndian.Uint32(data), nil
}

func toU64(field string, data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, widthError(field, data, 8)
	}
	return binary.BigEndian.Uint64(data), nil
}

func toWord(field string, data []byte) (common.Hash, error) {
	if len(data) != common.HashLength {
		return common.Hash{}, widthError(field, data, common.HashLength)
	}
	return common.BytesToHash(data), nil
}

func toAddress(field string, data []byte) (common.Address, error) {
	if len(data) != common.AddressLength {
		return common.Address{}, widthError(field, data, common.AddressLength)
	}
	return common.BytesToAddress(data), nil
}

func widthError(field string, data []byte, want int) error {
	return fmt.Errorf("%w: %s has %d bytes, want %d", ErrBadStep, field, len(data), want)
}
