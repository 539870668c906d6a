package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"discord-logbot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig 从 .env 文件和 config.yaml 加载配置到全局 viper 实例。
// 环境变量会覆盖配置文件中的同名设置。
func LoadConfig() {
	// 1. 从 .env 文件加载环境变量，如果文件不存在则忽略。
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，将跳过加载。")
	}

	// 2. 设置并读取基础配置文件 (config.yaml)。
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("未找到基础配置文件 (config.yaml)，将仅使用环境变量。")
		} else {
			panic(fmt.Errorf("解析基础配置文件时发生致命错误: %w", err))
		}
	}
}

// SetDefaults registers the default value of every key the bot reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot.dataDir", ".")
	v.SetDefault("bot.historyLimit", 50)
	v.SetDefault("bot.suppressTTL", "7s")
	v.SetDefault("bot.seedAtStartup", true)
	v.SetDefault("bot.statsInterval", "@every 1m")
	v.SetDefault("ledger.retentionDays", 31)
}

// Load resolves the application configuration from v. A missing token is the
// only error; everything else falls back to defaults.
func Load(v *viper.Viper) (*models.AppConfig, error) {
	SetDefaults(v)

	token := v.GetString("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	cfg := &models.AppConfig{
		Token:           token,
		AllowedGuilds:   splitIDs(v.GetString("SERVER_IDS")),
		DataDir:         v.GetString("bot.dataDir"),
		HistoryLimit:    v.GetInt("bot.historyLimit"),
		SuppressTTL:     v.GetDuration("bot.suppressTTL"),
		SeedAtStartup:   v.GetBool("bot.seedAtStartup"),
		AdminChannelID:  v.GetString("bot.adminChannelId"),
		StatsSchedule:   v.GetString("bot.statsInterval"),
		LedgerPath:      v.GetString("ledger.path"),
		LedgerRetention: v.GetInt("ledger.retentionDays"),
		GRPCListen:      v.GetString("grpc.listen"),
	}
	if err := v.UnmarshalKey("commands", &cfg.CommandsConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal commands config: %w", err)
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.SuppressTTL <= 0 {
		cfg.SuppressTTL = 7 * time.Second
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.DataDir, "ledger.db")
	}
	return cfg, nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
