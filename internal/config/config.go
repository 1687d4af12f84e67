package config

import (
	"github.com/spf13/viper"

	"github.com/mohitagarwal24/ResQ/internal/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	IPFS     IPFSConfig     `mapstructure:"ipfs"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// LedgerConfig 账本配置
type LedgerConfig struct {
	VerifierAddress  string `mapstructure:"verifier_address"`  // 独立审核人地址，空则组织者自证
	SubscriberBuffer int    `mapstructure:"subscriber_buffer"` // 订阅者事件缓冲
}

// IPFSConfig Pinata 上传配置
type IPFSConfig struct {
	Endpoint string `mapstructure:"endpoint"` // Pinata API 地址
	JWT      string `mapstructure:"jwt"`      // Pinata JWT
}

type TaskConfig struct {
	AuditInterval int `mapstructure:"audit_interval"` // 账目审计间隔，秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/resq")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "resq")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("ledger.verifier_address", "")
	viper.SetDefault("ledger.subscriber_buffer", 256)
	viper.SetDefault("ipfs.endpoint", "https://api.pinata.cloud")
	viper.SetDefault("ipfs.jwt", "")
	viper.SetDefault("task.audit_interval", 300)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
