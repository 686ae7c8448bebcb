// Package storage implements the storage/<bucket>/<op> surface: matching
// a request path against a release's declared storage policies and
// presigning the resulting S3 object operation.
package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is the storage portion of a release: the set of declared
// buckets and, per bucket, the ordered policy rules governing which
// paths may be uploaded/downloaded/deleted by which callers.
type Config struct {
	Buckets map[string]BucketConfig `json:"buckets"`
}

// BucketConfig names the backing S3 bucket/region for a declared bucket
// alias and its ordered policy rules.
type BucketConfig struct {
	Bucket   string   `json:"bucket"`
	Region   string   `json:"region,omitempty"`
	Policies []Policy `json:"policies"`
}

// Policy is one routing rule within a bucket: a path pattern plus the
// constraints an upload/download/delete against a matching path must
// satisfy.
type Policy struct {
	Pattern      string   `json:"pattern"`
	Roles        []string `json:"roles,omitempty"`
	Condition    string   `json:"condition,omitempty"`
	MaxSizeBytes int64    `json:"-"`
	MaxSize      string   `json:"max_size,omitempty"`
	AllowedTypes []string `json:"allowed_types,omitempty"`
}

// ResolveMaxSize parses MaxSize ("10MB", "512KB", a bare byte count) into
// MaxSizeBytes. Called once when a release is loaded into the cache.
func (p *Policy) ResolveMaxSize() error {
	if p.MaxSize == "" {
		p.MaxSizeBytes = 0
		return nil
	}
	n, err := ParseSizeBytes(p.MaxSize)
	if err != nil {
		return fmt.Errorf("storage: policy %q: %w", p.Pattern, err)
	}
	p.MaxSizeBytes = n
	return nil
}

// ParseSizeBytes parses a human size like "10MB", "512KB", "1GB", or a
// bare integer byte count, using binary (1024-based) units to match the
// original's convention.
func ParseSizeBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	units := []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, u := range units {
		if strings.HasSuffix(strings.ToUpper(s), u.suffix) {
			numPart := s[:len(s)-len(u.suffix)]
			n, err := strconv.ParseFloat(strings.TrimSpace(numPart), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q: %w", s, err)
			}
			return int64(n * float64(u.mult)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}
