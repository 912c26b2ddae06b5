package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows a future
// algorithm change without colliding with stored digests.
const (
	DomainRecord = "revise/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of a record's fields.
// Equal field sets always produce equal digests regardless of map order.
func Digest(kind, id string, fields Object) (string, error) {
	obj := Object{
		"kind":   String(kind),
		"id":     String(id),
		"fields": fields,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}
