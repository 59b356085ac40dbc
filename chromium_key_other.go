//go:build !darwin && !linux && !windows

package crumbs

import (
	"context"
	"errors"
)

func (r *ChromiumReader) platformDecryptor(_ context.Context) (chromiumDecryptFunc, error) {
	return nil, errors.New("crumbs: chromium cookie decryption unsupported on this OS")
}
