// Package storage provides interfaces.BlobStore backends.
package storage

import (
	"github.com/m-mizutani/goerr/v2"
)

// ErrObjectNotFound is returned when a key does not exist
var ErrObjectNotFound = goerr.New("object not found")
