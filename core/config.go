package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		AppName          string
		Build            string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server   ServerConfig
		Store    StoreConfig
		Firebase FirebaseConfig
		Mongo    MongoConfig
		Redis    RedisConfig
		Security SecurityConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	StoreConfig struct {
		Backend string // firestore | mongo | memory
	}

	FirebaseConfig struct {
		ProjectID       string
		CredentialsFile string
		CredentialsJSON string
	}

	MongoConfig struct {
		URI            string
		Database       string
		ConnectTimeout time.Duration
		MaxPoolSize    uint64
		MinPoolSize    uint64
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	SecurityConfig struct {
		MaxLoginAttempts     int
		LockoutWindow        time.Duration
		PasswordResetTimeout time.Duration
	}
)

// NewConfig loads the configuration from the environment.
// Values found in `config/.env.<env>` are loaded first when the file exists.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()
	loadDotEnv(filepath.Join(wd, "config", ".env."+strings.ToLower(env)))

	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("firebase.credentialsJSON", "PORTAL_FIREBASE_CREDENTIALSJSON", "FIREBASE_SERVICE_ACCOUNT_JSON")
	_ = v.BindEnv("firebase.projectID", "PORTAL_FIREBASE_PROJECTID", "GOOGLE_CLOUD_PROJECT")

	conf := &Config{
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		WorkDir:         wd,
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("store.backend")),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("firebase.projectID"),
			CredentialsFile: v.GetString("firebase.credentialsFile"),
			CredentialsJSON: v.GetString("firebase.credentialsJSON"),
		},
		Mongo: MongoConfig{
			URI:            v.GetString("mongo.uri"),
			Database:       v.GetString("mongo.database"),
			ConnectTimeout: v.GetDuration("mongo.connectTimeout"),
			MaxPoolSize:    v.GetUint64("mongo.maxPoolSize"),
			MinPoolSize:    v.GetUint64("mongo.minPoolSize"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Security: SecurityConfig{
			MaxLoginAttempts:     v.GetInt("security.maxLoginAttempts"),
			LockoutWindow:        v.GetDuration("security.lockoutWindow"),
			PasswordResetTimeout: v.GetDuration("security.passwordResetTimeout"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(defaultFromEmail): %v", err)
	}
	conf.DefaultFromEmail = *from
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Phoenix Science Academy")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "n7#q@c9v!x2w$r5t-phoenix-dev-only-(k3m8z1)")
	v.SetDefault("frontendBaseURL", "http://localhost:9002")
	v.SetDefault("defaultFromEmail", "Phoenix Science Academy <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("store.backend", BackendMemory)

	v.SetDefault("firebase.projectID", "")
	v.SetDefault("firebase.credentialsFile", "")
	v.SetDefault("firebase.credentialsJSON", "")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "results_portal")
	v.SetDefault("mongo.connectTimeout", 10*time.Second)
	v.SetDefault("mongo.maxPoolSize", uint64(50))
	v.SetDefault("mongo.minPoolSize", uint64(5))

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.maxLoginAttempts", 5)
	v.SetDefault("security.lockoutWindow", 15*time.Minute)
	v.SetDefault("security.passwordResetTimeout", 3*24*time.Hour)
}

// loadDotEnv loads the .env file at `path` if it exists (ignore if it does not).
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			log.Fatalf("config.godotenv(%s): %v", path, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", path, err)
	}
}
