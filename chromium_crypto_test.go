package crumbs

import (
	"bytes"
	"testing"
)

func TestChromiumDecryptGCM_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	nonce := bytes.Repeat([]byte{0x22}, 12)
	enc := encryptAESGCMForTest(t, "v10", key, nonce, []byte("session-token"))

	got, err := chromiumDecryptGCM(enc, key, 23)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "session-token" {
		t.Fatalf("want %q got %q", "session-token", string(got))
	}
}

func TestChromiumDecryptGCM_TamperedTagFails(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	nonce := bytes.Repeat([]byte{0x22}, 12)
	enc := encryptAESGCMForTest(t, "v10", key, nonce, []byte("session-token"))
	enc[len(enc)-1] ^= 0xFF

	if _, err := chromiumDecryptGCM(enc, key, 23); err == nil {
		t.Fatal("expected authentication failure")
	}
}

func TestChromiumDecryptGCM_StripsHashPrefix(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	nonce := bytes.Repeat([]byte{0x22}, 12)
	plain := append(bytes.Repeat([]byte{0xBB}, 32), []byte("hello")...)
	enc := encryptAESGCMForTest(t, "v10", key, nonce, plain)

	got, err := chromiumDecryptGCM(enc, key, 24)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("want %q got %q", "hello", string(got))
	}
}

func TestChromiumDecryptGCM_TooShort(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	if _, err := chromiumDecryptGCM([]byte("v10tiny"), key, 23); err == nil {
		t.Fatal("expected error for truncated input")
	}
}

func TestChromiumDecryptCBC_StripsHashPrefix(t *testing.T) {
	key := chromiumDeriveCBCKey("pw", chromiumCBCIterationsLinux)
	plain := append(bytes.Repeat([]byte{0xAA}, 32), []byte("hello")...)
	enc := encryptAESCBCForTest(t, "v10", key, plain)

	got, err := chromiumDecryptCBC(enc, key, 30, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("want %q got %q", "hello", string(got))
	}
}

func TestChromiumDecryptCBC_WrongKeyNeverYieldsPlaintext(t *testing.T) {
	key := chromiumDeriveCBCKey("pw", chromiumCBCIterationsLinux)
	wrong := chromiumDeriveCBCKey("other", chromiumCBCIterationsLinux)
	enc := encryptAESCBCForTest(t, "v10", key, []byte("hello"))

	// CBC has no integrity check; a wrong key usually fails padding
	// validation but can also unpad to garbage. It must never reproduce the
	// original plaintext.
	if got, err := chromiumDecryptCBC(enc, wrong, 0, false); err == nil && string(got) == "hello" {
		t.Fatal("wrong key decrypted to original plaintext")
	}
}

func TestChromiumDecryptCBC_UnknownPrefixAsPlaintext(t *testing.T) {
	key := chromiumDeriveCBCKey("pw", chromiumCBCIterationsLinux)

	got, err := chromiumDecryptCBC([]byte("plaintext"), key, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "plaintext" {
		t.Fatalf("want %q got %q", "plaintext", string(got))
	}
}

func TestChromiumDecodeValue(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		want   string
		wantOK bool
	}{
		{"plain", []byte("ok"), "ok", true},
		{"leading control chars", []byte{0x01, 0x02, 'o', 'k'}, "ok", true},
		{"trailing NULs", []byte{'o', 'k', 0x00, 0x00}, "ok", true},
		{"invalid utf8", []byte{'o', 0xFF, 0xFE}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chromiumDecodeValue(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("chromiumDecodeValue(%v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRemovePKCS7Padding(t *testing.T) {
	got, err := removePKCS7Padding([]byte{'h', 'i', 0x02, 0x02})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Fatalf("want %q got %q", "hi", got)
	}

	for _, in := range [][]byte{
		{0x00},
		{'a', 0x11}, // padding longer than block size
		{'a', 0x03}, // padding longer than input
		{'a', 0x02, 0x03},
	} {
		if _, err := removePKCS7Padding(in); err == nil {
			t.Fatalf("expected error for %v", in)
		}
	}
}
