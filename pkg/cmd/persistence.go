// Package cmd provides the shared bootstrap helpers the canvasflow binaries
// use to build their collaborators from flag values.
package cmd

import (
	"strings"

	"github.com/dukex/canvasflow/pkg/persistence"
	"github.com/dukex/canvasflow/pkg/persistence/file"
)

// NewStore builds a document store from a data URL. Only file storage is
// supported; a bare path and a file:// URL both resolve to it.
func NewStore(dataURL string) persistence.Store {
	return file.NewStore(strings.TrimPrefix(dataURL, "file://"))
}
