package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment        string
	ServerPort         int
	JWTSecretKey       string
	JWTExpirationHours int

	// Tenant isolation policy knobs.
	AllowLegacyTokens           bool
	UseDefaultTenantFallback    bool
	DefaultTenantKey            string
	FallbackRoutes              []string
	TenantCacheTTLSeconds       int
	AllowQueryTenantResolution  bool
	SubscriptionSuspendedPolicy string
	CORSDevelopmentOrigins      []string
	CORSMasterOrigins           []string
}

func Load() (*Config, error) {
	return &Config{
		Environment:                 getEnvWithDefault("ENVIRONMENT", "development"),
		ServerPort:                  getEnvIntWithDefault("SERVER_PORT", 10000),
		JWTSecretKey:                os.Getenv("JWT_SECRET_KEY"),
		JWTExpirationHours:          getEnvIntWithDefault("JWT_EXPIRATION_HOURS", 24),
		AllowLegacyTokens:           getEnvBoolWithDefault("ALLOW_LEGACY_TOKENS", false),
		UseDefaultTenantFallback:    getEnvBoolWithDefault("USE_DEFAULT_TENANT_FALLBACK", false),
		DefaultTenantKey:            getEnvWithDefault("DEFAULT_TENANT_KEY", "default"),
		FallbackRoutes:              getEnvListWithDefault("TENANT_FALLBACK_ROUTES", nil),
		TenantCacheTTLSeconds:       getEnvIntWithDefault("TENANT_CACHE_TTL_SECONDS", 300),
		AllowQueryTenantResolution:  getEnvBoolWithDefault("ALLOW_QUERY_TENANT", false),
		SubscriptionSuspendedPolicy: getEnvWithDefault("SUBSCRIPTION_SUSPENDED_POLICY", "deny"),
		CORSDevelopmentOrigins:      getEnvListWithDefault("CORS_DEVELOPMENT_ORIGINS", nil),
		CORSMasterOrigins:           getEnvListWithDefault("CORS_MASTER_ORIGINS", nil),
	}, nil
}

// IsDevelopment gates development-only behaviour such as the local CORS
// allow-list and query-string tenant resolution.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
