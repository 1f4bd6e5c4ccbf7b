package storage

import "io"

// BlobStore holds question media (audio prompts, figures). Keys are opaque
// paths referenced from the catalog's AudioKey/ImageKey fields.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
