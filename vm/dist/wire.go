package dist

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical encoding keeps chunk bytes deterministic so the same class
// always serializes identically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	return cborEncMode.Marshal(c)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes.
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var c Chunk
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("dist: unmarshal chunk: %w", err)
	}
	return &c, nil
}

// MarshalDigest serializes a ClassDigest to CBOR bytes.
func MarshalDigest(d *ClassDigest) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalDigest deserializes a ClassDigest from CBOR bytes.
func UnmarshalDigest(data []byte) (*ClassDigest, error) {
	var d ClassDigest
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("dist: unmarshal digest: %w", err)
	}
	return &d, nil
}

// MarshalSyncRequest serializes a SyncRequest to CBOR bytes.
func MarshalSyncRequest(r *SyncRequest) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalSyncRequest deserializes a SyncRequest from CBOR bytes.
func UnmarshalSyncRequest(data []byte) (*SyncRequest, error) {
	var r SyncRequest
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("dist: unmarshal sync request: %w", err)
	}
	return &r, nil
}

// MarshalSyncResponse serializes a SyncResponse to CBOR bytes.
func MarshalSyncResponse(r *SyncResponse) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalSyncResponse deserializes a SyncResponse from CBOR bytes.
func UnmarshalSyncResponse(data []byte) (*SyncResponse, error) {
	var r SyncResponse
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("dist: unmarshal sync response: %w", err)
	}
	return &r, nil
}

// VerifyChunkClass re-registers the chunk's source through the supplied
// register function and checks that the resulting structural hash matches
// the chunk's declared hash.
//
// The register function is injected so this package does not reach back
// into a live engine; it registers the source and returns the hash of the
// resulting class.
func VerifyChunkClass(c *Chunk, register func(source string) ([32]byte, error)) error {
	if c.Type != ChunkClass {
		return fmt.Errorf("dist: cannot verify non-class chunk (type=%d)", c.Type)
	}
	computed, err := register(c.Content)
	if err != nil {
		return fmt.Errorf("dist: register failed: %w", err)
	}
	if computed != c.Hash {
		return fmt.Errorf("dist: hash mismatch: declared %x, computed %x",
			c.Hash[:8], computed[:8])
	}
	return nil
}
