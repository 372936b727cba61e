package crypto

import (
	"errors"
	"testing"
)

func TestTronAddressRoundTrip(t *testing.T) {
	var raw TronAddress
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	encoded := raw.String()
	if encoded[0] != 'T' {
		t.Fatalf("expected T prefix, got %s", encoded)
	}
	parsed, err := ParseTronAddress(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != raw {
		t.Fatalf("round trip mismatch")
	}
}

func TestTronAddressKnownVector(t *testing.T) {
	// USDT TRC20 contract address.
	if _, err := ParseTronAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"); err != nil {
		t.Fatalf("expected known address to parse: %v", err)
	}
}

func TestTronAddressRejectsBadChecksum(t *testing.T) {
	var raw TronAddress
	raw[0] = 0xAB
	encoded := []byte(raw.String())
	last := encoded[len(encoded)-1]
	if last == '1' {
		encoded[len(encoded)-1] = '2'
	} else {
		encoded[len(encoded)-1] = '1'
	}
	if _, err := ParseTronAddress(string(encoded)); !errors.Is(err, ErrInvalidTronAddress) {
		t.Fatalf("expected checksum failure, got %v", err)
	}
	if _, err := ParseTronAddress("not-an-address"); !errors.Is(err, ErrInvalidTronAddress) {
		t.Fatalf("expected failure for garbage input")
	}
}

func TestParseAccount(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	addr := key.PubKey().Address()
	raw, err := ParseAccount(addr.String())
	if err != nil {
		t.Fatalf("parse bech32: %v", err)
	}
	if raw != addr.Raw() {
		t.Fatalf("bech32 mismatch")
	}
	hexRaw, err := ParseAccount("0x" + "0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if hexRaw[0] != 1 || hexRaw[19] != 0x14 {
		t.Fatalf("unexpected hex decode")
	}
	if _, err := ParseAccount("0x1234"); err == nil {
		t.Fatalf("expected short hex to fail")
	}
}
