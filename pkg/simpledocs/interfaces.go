package simpledocs

import (
	"context"
	"time"
)

// ObjectStore defines the object store capability. Implementations are bound
// to a single bucket.
type ObjectStore interface {
	// Put writes one object
	Put(ctx context.Context, in PutObjectInput) error

	// List returns at most maxKeys objects under prefix
	List(ctx context.Context, prefix string, maxKeys int32) ([]ObjectInfo, error)

	// Delete removes one object
	Delete(ctx context.Context, key string) error

	// Head returns the user metadata stored with an object
	Head(ctx context.Context, key string) (map[string]string, error)
}

// Presigner is implemented by stores that can issue time-limited retrieval URLs
type Presigner interface {
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

// DocumentCodec parses raw bytes into an editable document
type DocumentCodec interface {
	Parse(data []byte) (Document, error)
}

// Document is an editable document whose info fields can be set and read back
type Document interface {
	SetField(name, value string) error
	Field(name string) (string, bool)
	Serialize() ([]byte, error)
}
