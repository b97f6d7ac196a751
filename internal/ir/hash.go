package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	digestRelation = "relalg/relation/v1"
	digestSchema   = "relalg/schema/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RelationDigest computes a content digest of a relation body.
//
// The digest depends only on the positional domains and the SET of tuple
// keys: insertion order and attribute names do not affect it, so two
// union-compatible relations with the same tuples have the same digest.
func RelationDigest(domains []Domain, tupleKeys []string) string {
	keys := slices.Clone(tupleKeys)
	slices.Sort(keys)

	data := make([]byte, 0, len(domains)+len(keys)*16)
	for _, d := range domains {
		data = append(data, byte(d))
	}
	data = append(data, 0x00)
	for _, k := range keys {
		data = appendLengthPrefixed(data, k)
	}
	return hashWithDomain(digestRelation, data)
}

// SchemaDigest computes a digest of an attribute header (names and domains
// in order). Used to detect schema drift between stored and declared
// relations.
func SchemaDigest(names []Name, domains []Domain) string {
	var data []byte
	for i, n := range names {
		data = appendLengthPrefixed(data, string(n))
		if i < len(domains) {
			data = append(data, byte(domains[i]))
		}
	}
	return hashWithDomain(digestSchema, data)
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	n := len(s)
	buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(buf, s...)
}
