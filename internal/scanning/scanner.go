package scanning

import "context"

// Reader is the code reading collaborator. It yields one decoded payload per
// call and returns io.EOF once there is nothing left to read.
type Reader interface {
	// Read blocks until the next payload is decoded or ctx is done
	Read(ctx context.Context) (string, error)
	// Close closes the reader and releases resources
	Close() error
}
