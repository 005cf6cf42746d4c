package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeyLayout(t *testing.T) {
	b := NewKeyBuilder("production")
	now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

	key := b.Build("tenant-a", "attachment", "Invoice Q1.pdf", now)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 7)
	assert.Equal(t, "tenants", parts[0])
	assert.Equal(t, "tenant-a", parts[1])
	assert.Equal(t, "production", parts[2])
	assert.Equal(t, "attachment", parts[3])
	assert.Equal(t, "2026", parts[4])
	assert.Equal(t, "03", parts[5])
	assert.True(t, strings.HasPrefix(parts[6], "Invoice-Q1-"))
	assert.True(t, strings.HasSuffix(parts[6], ".pdf"))
}

func TestBuildKeyUniquePerCall(t *testing.T) {
	b := NewKeyBuilder("test")
	now := time.Now()
	first := b.Build("tenant-a", "attachment", "photo.png", now)
	second := b.Build("tenant-a", "attachment", "photo.png", now)
	assert.NotEqual(t, first, second)
}

func TestBuildKeySanitizesName(t *testing.T) {
	b := NewKeyBuilder("test")
	now := time.Now()

	key := b.Build("tenant-a", "attachment", "../../etc/pass wd!!.PNG", now)
	assert.NotContains(t, key, "..")
	assert.NotContains(t, key, " ")
	assert.True(t, strings.HasSuffix(key, ".png"))

	key = b.Build("tenant-a", "attachment", "....", now)
	assert.Contains(t, key, "/file-")
}

func TestBuildKeyTruncatesLongName(t *testing.T) {
	b := NewKeyBuilder("test")
	key := b.Build("tenant-a", "attachment", strings.Repeat("a", 200)+".txt", time.Now())
	base := key[strings.LastIndex(key, "/")+1:]
	assert.LessOrEqual(t, len(base), 120)
}

func TestDefaultEnvironment(t *testing.T) {
	b := NewKeyBuilder("")
	key := b.Build("tenant-a", "attachment", "a.txt", time.Now())
	assert.Contains(t, key, "/development/")
}

func TestKeyTenant(t *testing.T) {
	cases := []struct {
		key    string
		tenant string
		ok     bool
	}{
		{"tenants/tenant-a/production/attachment/2026/03/a.pdf", "tenant-a", true},
		{"/tenants/tenant-a/test/attachment/2026/03/a.pdf", "tenant-a", true},
		{"tenants/tenant-a/x", "tenant-a", true},
		{"tenants//production/attachment/a.pdf", "", false},
		{"uploads/tenant-a/a.pdf", "", false},
		{"tenants/tenant-a", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		tenantID, ok := KeyTenant(tc.key)
		assert.Equal(t, tc.ok, ok, "key %q", tc.key)
		assert.Equal(t, tc.tenant, tenantID, "key %q", tc.key)
	}
}
