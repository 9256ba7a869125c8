// Package assetkey builds storage object keys for uploaded image assets.
package assetkey

import (
	"fmt"
	"strings"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(meta *KeyMetadata) string
}

// KeyMetadata describes the asset a key is generated for
type KeyMetadata struct {
	SHA1      string
	Width     int
	Height    int
	Extension string
	FileName  string
}

func (m *KeyMetadata) baseName() string {
	return fmt.Sprintf("%s-%dx%d.%s", m.SHA1, m.Width, m.Height, sanitizePathComponent(m.Extension))
}

// CDNGenerator lays keys out the way image CDNs address them:
// images/{project}/{dataset}/{sha1}-{w}x{h}.{ext}
type CDNGenerator struct {
	ProjectID string
	Dataset   string
}

func NewCDNGenerator(projectID, dataset string) *CDNGenerator {
	return &CDNGenerator{ProjectID: projectID, Dataset: dataset}
}

func (g *CDNGenerator) GenerateKey(meta *KeyMetadata) string {
	return fmt.Sprintf("images/%s/%s/%s",
		sanitizePathComponent(g.ProjectID), sanitizePathComponent(g.Dataset), meta.baseName())
}

// ShardedGenerator provides Git-style sharded storage keyed by content hash
// images/objects/ab/cd1234ef5678-{w}x{h}.{ext}
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(meta *KeyMetadata) string {
	n := g.ShardLength
	if n <= 0 {
		n = 2
	}
	if len(meta.SHA1) < n {
		n = len(meta.SHA1)
	}
	shard, rest := meta.SHA1[:n], meta.SHA1[n:]
	return fmt.Sprintf("images/objects/%s/%s-%dx%d.%s",
		shard, rest, meta.Width, meta.Height, sanitizePathComponent(meta.Extension))
}

// NewDefaultGenerator returns the generator used when none is configured.
func NewDefaultGenerator(projectID, dataset string) Generator {
	return NewCDNGenerator(projectID, dataset)
}

// sanitizePathComponent keeps a key segment free of separators and
// characters object stores treat specially.
func sanitizePathComponent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
