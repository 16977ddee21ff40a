package config

import "github.com/spf13/viper"

// Config carries everything the service reads from the environment. It is
// loaded once in main and passed explicitly into each component constructor.
type Config struct {
	ListenAddr string `mapstructure:"LISTEN_ADDR"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBName     string `mapstructure:"DB_NAME"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBPassword string `mapstructure:"DB_PASSWORD"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	// AppURL is the public base URL of the frontend; OAuth callback
	// redirects land on <AppURL>/dashboard.
	AppURL string `mapstructure:"APP_URL"`

	AnthropicAPIKey    string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `mapstructure:"ANTHROPIC_MODEL"`
	AnthropicMaxTokens int    `mapstructure:"ANTHROPIC_MAX_TOKENS"`

	// JWTSecret verifies session tokens issued by the external auth
	// provider.
	JWTSecret string `mapstructure:"JWT_SECRET"`
}

var envs = []string{
	"LISTEN_ADDR",
	"DB_HOST", "DB_NAME", "DB_USER", "DB_PORT", "DB_PASSWORD",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
	"APP_URL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_MAX_TOKENS",
	"JWT_SECRET",
}

func LoadConfig() (Config, error) {
	var config Config
	viper.AddConfigPath("./")
	viper.SetConfigFile(".env")
	viper.ReadInConfig()
	viper.SetDefault("LISTEN_ADDR", ":8000")
	viper.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514")
	viper.SetDefault("ANTHROPIC_MAX_TOKENS", 1024)
	for _, env := range envs {
		if err := viper.BindEnv(env); err != nil {
			return config, err
		}
	}
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}
