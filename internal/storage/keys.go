package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const keyRoot = "tenants"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// KeyBuilder produces tenant-prefixed object keys:
// tenants/{tenantId}/{env}/{fileType}/{YYYY}/{MM}/{sanitized}-{ts}-{rand}.{ext}
type KeyBuilder struct {
	env string
}

func NewKeyBuilder(env string) *KeyBuilder {
	if env == "" {
		env = "development"
	}
	return &KeyBuilder{env: env}
}

func (b *KeyBuilder) Build(tenantID, fileType, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	base := strings.TrimSuffix(fileName, ext)
	return fmt.Sprintf("%s/%s/%s/%s/%04d/%02d/%s-%d-%s%s",
		keyRoot, tenantID, b.env, fileType,
		now.Year(), int(now.Month()),
		sanitizeName(base), now.Unix(), uuid.NewString()[:8], ext)
}

func sanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "file"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}

// KeyTenant extracts the owning tenant id from an object key.
func KeyTenant(key string) (string, bool) {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	if len(parts) < 3 || parts[0] != keyRoot || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
