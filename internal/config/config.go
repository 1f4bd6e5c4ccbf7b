package config

import (
	"os"
	"strings"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // question media (audio/image) lives under this dir

	AuthHMACSecret string
	TokenTTLHours  int

	// Bootstrap admin, upserted into users on startup.
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsProd []string
	CORSOriginsDev  []string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeDev
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		BlobBasePath:   envOr("BLOB_BASE_PATH", "./data"),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "dev-only-secret"),
		TokenTTLHours:  envInt("TOKEN_TTL_HOURS", 8),
		AdminUser:      envOr("ADMIN_USER", "admin"),
		// bcrypt("admin"); override in any real deployment
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2a$12$ZPDKEfV1rCkYW0KYIjcGhuDFm10bzDpa5KNbWkJ1V9XMgB7eW8Txu"),
		CORSOriginsProd: csvOr("CORS_ORIGINS", "https://app.edvisory.example"),
		CORSOriginsDev:  csvOr("CORS_ORIGINS_DEV", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
