// Package dist implements content-addressed class distribution for
// Starling. Engines exchange class declarations as chunks keyed by the
// SHA-256 of their structure, encoded with canonical CBOR, so a receiver
// can verify that re-registering the source reproduces the advertised
// class.
package dist

// ChunkType identifies the kind of content in a Chunk.
type ChunkType uint8

const (
	ChunkClass  ChunkType = 1
	ChunkScript ChunkType = 2
)

// Chunk is the atomic unit of distribution. It carries the declaration
// source plus the structural hash the receiver must reproduce.
type Chunk struct {
	Hash         [32]byte   `cbor:"1,keyasint"`
	Type         ChunkType  `cbor:"2,keyasint"`
	Content      string     `cbor:"3,keyasint"`           // declaration source
	Dependencies [][32]byte `cbor:"4,keyasint,omitempty"` // extends/implements hashes
}

// SyncRequest is the have/want negotiation message.
type SyncRequest struct {
	Have [][32]byte `cbor:"1,keyasint"`
	Want [][32]byte `cbor:"2,keyasint"`
}

// SyncResponse carries the requested chunks in dependency order: a class
// always follows the classes it extends or implements.
type SyncResponse struct {
	Chunks []Chunk `cbor:"1,keyasint"`
}
