// Package resolver provides the shared codec for payloads crossing
// the channel boundary.
package resolver

import (
	"sync"

	"github.com/ugorji/go/codec"
)

var (
	handle codec.JsonHandle

	encodeMutex sync.Mutex
	encoder     = codec.NewEncoder(nil, &handle)

	decodeMutex sync.Mutex
	decoder     = codec.NewDecoder(nil, &handle)
)

// Encode serializes a value into the provided byte slice.
func Encode(data *[]byte, value interface{}) error {
	encodeMutex.Lock()
	defer encodeMutex.Unlock()

	encoder.ResetBytes(data)
	return encoder.Encode(value)
}

// Decode deserializes a byte slice into the provided value.
func Decode(data []byte, value interface{}) error {
	decodeMutex.Lock()
	defer decodeMutex.Unlock()

	decoder.ResetBytes(data)
	return decoder.Decode(value)
}
