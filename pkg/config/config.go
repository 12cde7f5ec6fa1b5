package config

import (
	"os"

	"github.com/go-batteries/diaper"
	"github.com/rs/zerolog/log"
)

type AppConfig struct {
	Port          string
	PublicBaseURL string

	// "minio" or "local"
	StoreBackend string
	DataDir      string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// "store" or "redis"
	RateLimitBackend    string
	RedisURL            string
	RateLimitFailClosed bool
}

func Load(envFile string) AppConfig {
	providers := diaper.BuildProviders(diaper.EnvProvider{})
	loader := diaper.DiaperConfig{
		DefaultEnvFile: "app.env",
		Providers:      providers,
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	cfgMap, err := loader.ReadFromFile(env, envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config from " + envFile)
	}

	return AppConfig{
		Port:                cfgMap.MustGet("port").(string),
		PublicBaseURL:       cfgMap.MustGet("public_base_url").(string),
		StoreBackend:        cfgMap.MustGet("store_backend").(string),
		DataDir:             cfgMap.MustGet("data_dir").(string),
		MinioEndpoint:       cfgMap.MustGet("minio_endpoint").(string),
		MinioAccessKey:      cfgMap.MustGet("minio_access_key").(string),
		MinioSecretKey:      cfgMap.MustGet("minio_secret_key").(string),
		MinioBucket:         cfgMap.MustGet("minio_bucket").(string),
		MinioUseSSL:         cfgMap.MustGet("minio_use_ssl").(string) == "true",
		RateLimitBackend:    cfgMap.MustGet("ratelimit_backend").(string),
		RedisURL:            cfgMap.MustGet("redis_url").(string),
		RateLimitFailClosed: cfgMap.MustGet("ratelimit_fail_closed").(string) == "true",
	}
}
