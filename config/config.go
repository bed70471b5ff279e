package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		// .env is optional; deployments usually configure the environment directly.
		_ = godotenv.Load()

		viper.AutomaticEnv()

		viper.BindEnv("port", "PORT")
		viper.BindEnv("channel_access_token", "CHANNEL_ACCESS_TOKEN")
		viper.BindEnv("channel_secret", "CHANNEL_SECRET")
		viper.BindEnv("base_url", "BASE_URL")
		viper.BindEnv("font_path", "FONT_PATH")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("log_file", "LOG_FILE")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang_code", "LANG_CODE")
		viper.BindEnv("alert_check_interval", "ALERT_CHECK_INTERVAL")

		viper.SetDefault("port", 5000)
		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang_code", "zh-tw")
		viper.SetDefault("alert_check_interval", 0)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}
