package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppName     = "simple-mercari"
	EnvFileName = "config.env"

	// DefaultServerOrigin is used when API_URL is not set.
	DefaultServerOrigin = "http://127.0.0.1:9000"
	DefaultFrontURL     = "http://localhost:3000"
	DefaultPort         = "9000"
	DefaultDBPath       = "db/mercari.sqlite3"
	DefaultImageDir     = "images"
)

// requiredEnvVars lists the variables the bot cannot start without.
var requiredEnvVars = []string{"BOT_TOKEN"}

// Config carries environment-driven settings. It is read once at startup.
type Config struct {
	// ServerOrigin is the items API origin, without the /items path.
	ServerOrigin string
	// FrontURL is the origin allowed by the server's CORS policy.
	FrontURL string
	Port     string
	DBPath   string
	ImageDir string
	BotToken string
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := ConfigFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// MissingRequired returns the names of required variables that are unset.
func MissingRequired() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if strings.TrimSpace(os.Getenv(v)) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the environment and applies defaults.
func Load() Config {
	return Config{
		ServerOrigin: strings.TrimRight(envDefault("API_URL", DefaultServerOrigin), "/"),
		FrontURL:     envDefault("FRONT_URL", DefaultFrontURL),
		Port:         envDefault("PORT", DefaultPort),
		DBPath:       envDefault("MERCARI_DB_PATH", DefaultDBPath),
		ImageDir:     envDefault("MERCARI_IMAGE_DIR", DefaultImageDir),
		BotToken:     strings.TrimSpace(os.Getenv("BOT_TOKEN")),
	}
}

// ItemsURL returns the endpoint listings are posted to.
func (c Config) ItemsURL() string {
	return c.ServerOrigin + "/items"
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
