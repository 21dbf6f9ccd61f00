package store

import (
	"crypto/rand"
	"encoding/hex"
	"path"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"
)

// ContentHash is the hex BLAKE2b-256 digest of an upload.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// UploadKey is the object key of an uploaded spreadsheet. It depends only on
// the content, so identical uploads share one object whatever their names.
func UploadKey(hash string) string {
	return path.Join("uploads", hash)
}

// ProcessedKey is the object key of a processed result file.
func ProcessedKey(runID, filename string) string {
	return path.Join("processed", runID, safeName(filename))
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a time-ordered ULID for runs and dataset records.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
