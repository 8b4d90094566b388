package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultAddr = "[::1]:50051"

type Config struct {
	Addr        string
	DatabaseDSN string
	UserAgent   string
	EnableHSTS  bool
	CORSOrigins []string

	// Federation
	ListTimeout    time.Duration
	SearchTimeout  time.Duration
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	// Geocoding
	KakaoAPIKey     string
	GeocodeCacheTTL time.Duration

	// Backends
	UpstreamRPS        int
	UpstreamMaxRetries int
	EcoInsecureTLS     bool
	SeochoBaseURL      string
	NowonBaseURL       string

	// Telemetry
	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Addr:        getenv("APP_ADDR", DefaultAddr),
		DatabaseDSN: os.Getenv("DB_DSN"),
		UserAgent:   getenv("USER_AGENT", "heekkr/1.0 (+https://heek.kr)"),
		EnableHSTS:  getenvBool("ENABLE_HSTS", false),
		CORSOrigins: getenvList("CORS_ORIGINS"),

		ListTimeout:    getenvDuration("LIST_LIBRARIES_TIMEOUT", 5*time.Second),
		SearchTimeout:  getenvDuration("SEARCH_TIMEOUT", 15*time.Second),
		RequestTimeout: getenvDuration("REQUEST_TIMEOUT", 20*time.Second),
		RateLimitRPS:   getenvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 20),

		KakaoAPIKey:     os.Getenv("KAKAO_API_KEY"),
		GeocodeCacheTTL: getenvDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour),

		UpstreamRPS:        getenvInt("UPSTREAM_RPS", 5),
		UpstreamMaxRetries: getenvInt("UPSTREAM_MAX_RETRIES", 2),
		EcoInsecureTLS:     getenvBool("ECO_INSECURE_TLS", false),
		SeochoBaseURL:      getenv("SEOCHO_BASE_URL", "https://public.seocholib.or.kr/"),
		NowonBaseURL:       getenv("NOWON_BASE_URL", "https://www.nowonlib.kr/"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

func getenvFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %g", k, v, def)
		return def
	}
	return f
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %t", k, v, def)
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

func getenvList(k string) []string {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
