package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NodeIDFor derives the stable node ID from file path and entity name.
// The same path and name always produce the same ID across runs.
func NodeIDFor(filePath, name string) string {
	sum := sha256.Sum256([]byte(filePath + ":" + name))
	return hex.EncodeToString(sum[:])
}

// HashBytes fingerprints arbitrary content with xxhash64.
func HashBytes(b []byte) string {
	return strconv.FormatUint(xxhash.Sum64(b), 16)
}

// HashBody fingerprints an implementation body.
func HashBody(code string) string {
	return HashBytes([]byte(code))
}

// CanonicalSignature renders the externally visible interface of a node as
// a deterministic string. Two nodes hash equal iff a caller could not tell
// them apart without reading the body.
func CanonicalSignature(n Node) string {
	var b strings.Builder
	b.WriteString(string(n.Kind))
	b.WriteByte('|')
	b.WriteString(n.Name)
	b.WriteByte('|')
	b.WriteString(n.Visibility)
	b.WriteByte('|')
	b.WriteString(n.Signature.Receiver)
	b.WriteByte('|')
	for _, p := range n.Signature.Params {
		fmt.Fprintf(&b, "%s %s,", p.Name, p.Type)
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(n.Signature.Returns, ","))
	b.WriteByte('|')
	for _, g := range n.Types.Generics {
		fmt.Fprintf(&b, "%s:%s;", g.Name, strings.Join(g.Bounds, "+"))
	}
	b.WriteByte('|')
	for _, l := range n.Types.Lifetimes {
		fmt.Fprintf(&b, "%s:%s;", l.Name, strings.Join(l.Outlives, "+"))
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(n.Types.WhereClauses, ";"))
	b.WriteByte('|')
	b.WriteString(strings.Join(n.Types.TraitBounds, ";"))
	b.WriteByte('|')
	impls := append([]string(nil), n.Types.Implements...)
	sort.Strings(impls)
	b.WriteString(strings.Join(impls, ";"))
	return b.String()
}

// HashSignature fingerprints the externally visible interface of a node.
func HashSignature(n Node) string {
	return HashBytes([]byte(CanonicalSignature(n)))
}
