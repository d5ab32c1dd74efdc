package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with old cache entries.
const (
	DomainKernel = "irjit/kernel/v1"
	DomainSource = "irjit/source/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// KernelHash identifies the compiled graph rooted at root. Two roots that
// encode to the same snapshot hash equal, whatever graph they live in.
func KernelHash(root *Node) (string, error) {
	data, err := Encode(root)
	if err != nil {
		return "", fmt.Errorf("KernelHash: %w", err)
	}
	return hashWithDomain(DomainKernel, data), nil
}

// SourceHash identifies a kernel definition before compilation. The
// engine uses it as the cache key so a hit skips lowering entirely.
func SourceHash(spec KernelSpec) (string, error) {
	data, err := MarshalCanonical(spec.canonical())
	if err != nil {
		return "", fmt.Errorf("SourceHash: %w", err)
	}
	return hashWithDomain(DomainSource, data), nil
}

// MustKernelHash is like KernelHash but panics on error.
func MustKernelHash(root *Node) string {
	h, err := KernelHash(root)
	if err != nil {
		panic(err)
	}
	return h
}

// MustSourceHash is like SourceHash but panics on error.
func MustSourceHash(spec KernelSpec) string {
	h, err := SourceHash(spec)
	if err != nil {
		panic(err)
	}
	return h
}
