package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config.json or the environment.
type AppConfig struct {
	AppName           string
	AppPort           string
	SessionSecret     string
	SessionMaxAgeHrs  int
	SessionSecure     bool
	LocalLoginEnabled bool
	// Database
	DBDriver    string
	DatabaseURI string
	SQLitePath  string
	// OAuth providers
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectBase  string
	// Third-party emoji lookup
	EmojiAPIKey  string
	EmojiAPIBase string
	// Avatars
	AvatarDir        string
	AvatarURLPrefix  string
	AvatarSize       int
	AvatarS3Bucket   string
	AvatarS3Region   string
	AvatarS3Endpoint string
	AvatarS3Prefix   string
	// Redis for caching and oauth state
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	GinPath            string
	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// envBindings maps viper keys onto the environment variable names operators use.
var envBindings = map[string][]string{
	"app.name":                 {"APP_NAME"},
	"app.port":                 {"APP_PORT", "PORT"},
	"app.sessionsecret":        {"SESSION_SECRET"},
	"app.sessionmaxagehours":   {"SESSION_MAX_AGE_HOURS"},
	"app.sessionsecure":        {"SESSION_SECURE"},
	"app.localloginenabled":    {"LOCAL_LOGIN_ENABLED"},
	"app.ratelimitperminute":   {"RATE_LIMIT_PER_MINUTE"},
	"app.allowedorigins":       {"CORS_ALLOWED_ORIGINS"},
	"app.oauthredirectbase":    {"OAUTH_REDIRECT_BASE_URL"},
	"database.driver":          {"DB_DRIVER"},
	"database.uri":             {"DATABASE_URI"},
	"database.sqlitepath":      {"SQLITE_PATH"},
	"oauth.googleclientid":     {"CLIENT_ID", "GOOGLE_CLIENT_ID"},
	"oauth.googleclientsecret": {"CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"},
	"oauth.githubclientid":     {"GITHUB_CLIENT_ID"},
	"oauth.githubclientsecret": {"GITHUB_CLIENT_SECRET"},
	"emoji.apikey":             {"EMOJI_API_KEY"},
	"emoji.apibase":            {"EMOJI_API_BASE"},
	"avatar.dir":               {"AVATAR_DIR"},
	"avatar.urlprefix":         {"AVATAR_URL_PREFIX"},
	"avatar.size":              {"AVATAR_SIZE"},
	"avatar.s3bucket":          {"AVATAR_S3_BUCKET"},
	"avatar.s3region":          {"AVATAR_S3_REGION"},
	"avatar.s3endpoint":        {"AVATAR_S3_ENDPOINT"},
	"avatar.s3prefix":          {"AVATAR_S3_PREFIX"},
	"redis.enabled":            {"REDIS_ENABLED"},
	"redis.host":               {"REDIS_HOST"},
	"redis.port":               {"REDIS_PORT"},
	"redis.db":                 {"REDIS_DB"},
	"redis.password":           {"REDIS_PASSWORD"},
	"gin.mode":                 {"GIN_MODE"},
	"gin.logpath":              {"GIN_PATH", "GIN_LOG_PATH"},
	"log.level":                {"LOG_LEVEL"},
	"log.path":                 {"LOG_PATH"},
	"log.maxsizemb":            {"LOG_MAX_SIZE_MB"},
	"log.maxbackups":           {"LOG_MAX_BACKUPS"},
	"log.maxagedays":           {"LOG_MAX_AGE_DAYS"},
	"log.compress":             {"LOG_COMPRESS"},
}

// Load loads the application configuration. It should be called once during boot.
// Precedence: environment variables -> config/config.json -> defaults.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := Read(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid config file: %v", err)
	}
	if c.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.Lock()
	ok := loaded
	mu.Unlock()
	if !ok {
		return Load()
	}
	return cfg
}

// Read builds a configuration from defaults, the optional JSON file at path and
// the environment without validating it. Tools that never serve requests use it directly.
func Read(path string) (AppConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return AppConfig{}, err
	}
	return fromViper(v), nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	applyDefaults(v)
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	// The file is optional; a malformed one is fatal.
	if _, err := os.Stat(path); err != nil {
		return v, nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// applyDefaults sets sane defaults for every non-secret key.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Yapper")
	v.SetDefault("app.port", "3000")
	v.SetDefault("app.sessionmaxagehours", 24*7)
	v.SetDefault("app.sessionsecure", false)
	v.SetDefault("app.localloginenabled", false)
	v.SetDefault("app.ratelimitperminute", 60)
	v.SetDefault("app.allowedorigins", []string{"*"})
	v.SetDefault("app.oauthredirectbase", "http://localhost:3000")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlitepath", "microBlog.db")
	v.SetDefault("emoji.apibase", "https://emoji-api.com")
	v.SetDefault("avatar.dir", filepath.Join("public", "images", "avatar"))
	v.SetDefault("avatar.urlprefix", "images/avatar")
	v.SetDefault("avatar.size", 200)
	v.SetDefault("avatar.s3region", "us-east-1")
	v.SetDefault("avatar.s3prefix", "avatars")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("gin.mode", "release")
	v.SetDefault("gin.logpath", "logs/go_gin.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxsizemb", 100)
	v.SetDefault("log.maxbackups", 3)
	v.SetDefault("log.maxagedays", 7)
}

func fromViper(v *viper.Viper) AppConfig {
	return AppConfig{
		AppName:            v.GetString("app.name"),
		AppPort:            v.GetString("app.port"),
		SessionSecret:      v.GetString("app.sessionsecret"),
		SessionMaxAgeHrs:   v.GetInt("app.sessionmaxagehours"),
		SessionSecure:      v.GetBool("app.sessionsecure"),
		LocalLoginEnabled:  v.GetBool("app.localloginenabled"),
		DBDriver:           strings.ToLower(v.GetString("database.driver")),
		DatabaseURI:        v.GetString("database.uri"),
		SQLitePath:         v.GetString("database.sqlitepath"),
		GoogleClientID:     v.GetString("oauth.googleclientid"),
		GoogleClientSecret: v.GetString("oauth.googleclientsecret"),
		GitHubClientID:     v.GetString("oauth.githubclientid"),
		GitHubClientSecret: v.GetString("oauth.githubclientsecret"),
		OAuthRedirectBase:  strings.TrimRight(v.GetString("app.oauthredirectbase"), "/"),
		EmojiAPIKey:        v.GetString("emoji.apikey"),
		EmojiAPIBase:       strings.TrimRight(v.GetString("emoji.apibase"), "/"),
		AvatarDir:          v.GetString("avatar.dir"),
		AvatarURLPrefix:    strings.Trim(v.GetString("avatar.urlprefix"), "/"),
		AvatarSize:         v.GetInt("avatar.size"),
		AvatarS3Bucket:     v.GetString("avatar.s3bucket"),
		AvatarS3Region:     v.GetString("avatar.s3region"),
		AvatarS3Endpoint:   v.GetString("avatar.s3endpoint"),
		AvatarS3Prefix:     v.GetString("avatar.s3prefix"),
		RedisEnabled:       v.GetBool("redis.enabled"),
		RedisHost:          v.GetString("redis.host"),
		RedisPort:          v.GetInt("redis.port"),
		RedisDB:            v.GetInt("redis.db"),
		RedisPassword:      v.GetString("redis.password"),
		RateLimitPerMinute: v.GetInt("app.ratelimitperminute"),
		AllowedOrigins:     readList(v, "app.allowedorigins"),
		GinMode:            v.GetString("gin.mode"),
		GinPath:            v.GetString("gin.logpath"),
		LogLevel:           v.GetString("log.level"),
		LogPath:            v.GetString("log.path"),
		LogMaxSizeMB:       v.GetInt("log.maxsizemb"),
		LogMaxBackups:      v.GetInt("log.maxbackups"),
		LogMaxAgeDays:      v.GetInt("log.maxagedays"),
		LogCompress:        v.GetBool("log.compress"),
	}
}

// readList accepts both JSON arrays and comma separated env values.
func readList(v *viper.Viper, key string) []string {
	items := []string{}
	for _, raw := range v.GetStringSlice(key) {
		for _, item := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
