//go:build windows

package crumbs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// chromiumDPAPIBlobPrefix is the fixed header CryptProtectData writes, so a
// raw DPAPI-wrapped value can be told apart from the v10/v11 AEAD format.
var chromiumDPAPIBlobPrefix = [...]byte{
	1, 0, 0, 0, 208, 140, 157, 223, 1, 21, 209, 17, 140, 122, 0, 192, 79, 194, 151, 235,
} // 0x01000000D08C9DDF0115D1118C7A00C04FC297EB

// platformDecryptor builds the Windows decryptor. The AES-256-GCM master key
// comes from Local State and is unwrapped via DPAPI; when that fails the
// decryptor still handles legacy whole-blob DPAPI values, and v10/v11 rows
// are skipped.
func (r *ChromiumReader) platformDecryptor(_ context.Context) (chromiumDecryptFunc, error) {
	var masterKey []byte
	if statePath, ok := r.localStatePath(); ok {
		key, err := chromiumWindowsMasterKey(statePath)
		if err != nil {
			r.log.Debug("master key unwrap failed, only DPAPI values will decrypt",
				"browser", r.vendor.browser, "error", err)
		} else {
			masterKey = key
		}
	} else {
		r.log.Debug("Local State not found, only DPAPI values will decrypt",
			"browser", r.vendor.browser)
	}

	fn := chromiumDecryptFunc(func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		if len(encrypted) < chromiumVersionLen {
			return nil, false
		}
		switch {
		case bytes.HasPrefix(encrypted, chromiumDPAPIBlobPrefix[:]):
			plain, err := dpapiUnprotect(encrypted)
			if err != nil {
				return nil, false
			}
			return chromiumStripHashPrefix(plain, metaVersion), true
		case chromiumGCMVersionPrefix(encrypted):
			if masterKey == nil {
				return nil, false
			}
			plain, err := chromiumDecryptGCM(encrypted, masterKey, metaVersion)
			if err != nil {
				return nil, false
			}
			return plain, true
		case chromiumVersionPrefix(encrypted):
			// v20 and later app-bound schemes; not per-user DPAPI.
			return nil, false
		default:
			plain, err := dpapiUnprotect(encrypted)
			if err != nil {
				return nil, false
			}
			return chromiumStripHashPrefix(plain, metaVersion), true
		}
	})
	return fn, nil
}

// chromiumWindowsMasterKey reads os_crypt.encrypted_key from Local State,
// strips the "DPAPI" marker, and unwraps the 32-byte key.
func chromiumWindowsMasterKey(statePath string) ([]byte, error) {
	stateBytes, err := os.ReadFile(statePath)
	if err != nil {
		return nil, err
	}

	var localState struct {
		OSCrypt struct {
			EncryptedKey string `json:"encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(stateBytes, &localState); err != nil {
		return nil, err
	}
	encB64 := strings.TrimSpace(localState.OSCrypt.EncryptedKey)
	if encB64 == "" {
		return nil, errors.New("local state missing os_crypt.encrypted_key")
	}
	enc, err := base64.StdEncoding.DecodeString(encB64)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(enc, []byte("DPAPI")) {
		return nil, errors.New("encrypted_key missing DPAPI prefix")
	}
	key, err := dpapiUnprotect(enc[len("DPAPI"):])
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key not 32 bytes (got %d)", len(key))
	}
	return key, nil
}

func dpapiUnprotect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty dpapi input")
	}

	var outBlob dataBlob
	if err := cryptUnprotectData(newBlob(data), &outBlob); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = windows.LocalFree(windows.Handle(unsafe.Pointer(outBlob.pbData))) //nolint:gosec // Windows API requires this.
	}()
	return outBlob.bytes(), nil
}

type dataBlob struct {
	cbData uint32
	pbData *byte
}

func newBlob(d []byte) *dataBlob {
	if len(d) == 0 {
		return &dataBlob{}
	}
	return &dataBlob{pbData: &d[0], cbData: uint32(len(d))}
}

func (b *dataBlob) bytes() []byte {
	if b == nil || b.cbData == 0 || b.pbData == nil {
		return nil
	}
	out := make([]byte, b.cbData)
	copy(out, (*[1 << 30]byte)(unsafe.Pointer(b.pbData))[:b.cbData:b.cbData])
	return out
}

func cryptUnprotectData(in *dataBlob, out *dataBlob) error {
	// windows.CryptUnprotectData wrapper in x/sys is awkward for raw blobs; call proc directly.
	dll := windows.NewLazySystemDLL("Crypt32.dll")
	proc := dll.NewProc("CryptUnprotectData")
	const cryptprotectUIForbidden = 0x1
	r, _, e := proc.Call(
		uintptr(unsafe.Pointer(in)),
		0,
		0,
		0,
		0,
		cryptprotectUIForbidden,
		uintptr(unsafe.Pointer(out)),
	)
	if r == 0 {
		return e
	}
	return nil
}
