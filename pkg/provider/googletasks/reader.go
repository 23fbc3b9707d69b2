package googletasks

import (
	"bytes"
	"io"
)

// bytesReader returns nil (no body) for an empty payload, otherwise a
// reader over it, so GET/DELETE requests don't carry a spurious body.
func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}
