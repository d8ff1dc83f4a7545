package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends
const (
	CacheBackendNone      = "none"
	CacheBackendBadger    = "badger"
	CacheBackendRistretto = "ristretto"
)

type (
	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		InMemory     bool // serve from seeded in-memory tables instead of Postgres
		AppName      string
		Build        string
		SecretKey    string
		RollbarToken string
		LogLevel     string

		Server    ServerConfig
		Database  DatabaseConfig
		Datatable DatatableConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		URL                       string // where the admin CLI reaches the API; derived from Host and Address when empty
		DisableReqLogs            bool
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	DatatableConfig struct {
		AllowedLengths []int
		DefaultLength  int
		CacheEnabled   bool
		CacheTTL       time.Duration
		CacheBackend   string // none | badger | ristretto
		CachePath      string // badger only; empty means in-memory
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// BaseURL returns the root URL of the API, eg. `http://localhost:8000`.
func (sc ServerConfig) BaseURL() string {
	if sc.URL != "" {
		return strings.TrimRight(sc.URL, "/")
	}
	host, port, err := net.SplitHostPort(sc.Address)
	if err != nil {
		return "http://" + sc.Address
	}
	if host == "" {
		host = sc.Host
	}
	return "http://" + net.JoinHostPort(host, port)
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased ENV, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("inMemory", false)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.url", "")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "masomo")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("datatable.allowedLengths", "10,15,25,50,100")
	v.SetDefault("datatable.defaultLength", 10)
	v.SetDefault("datatable.cacheEnabled", true)
	v.SetDefault("datatable.cacheTTL", 5*time.Minute)
	v.SetDefault("datatable.cacheBackend", CacheBackendRistretto)
	v.SetDefault("datatable.cachePath", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		InMemory:     v.GetBool("inMemory"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		LogLevel:     v.GetString("log.level"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			URL:                       v.GetString("server.url"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Datatable: DatatableConfig{
			AllowedLengths: ParseIntList(v.GetString("datatable.allowedLengths")),
			DefaultLength:  v.GetInt("datatable.defaultLength"),
			CacheEnabled:   v.GetBool("datatable.cacheEnabled"),
			CacheTTL:       v.GetDuration("datatable.cacheTTL"),
			CacheBackend:   strings.ToLower(v.GetString("datatable.cacheBackend")),
			CachePath:      v.GetString("datatable.cachePath"),
		},
	}
}

// ParseIntList parses a comma separated list of integers, skipping the invalid ones.
func ParseIntList(s string) []int {
	parts := strings.Split(s, ",")
	list := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(CleanString(p)); err == nil {
			list = append(list, n)
		}
	}
	return list
}
