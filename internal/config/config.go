package config

import (
	"log"
	"os"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
	// Pool sizing mirrors worker concurrency; connections are recycled to
	// avoid MySQL wait-timeout kills on idle links.
	MaxOpenConns           int `toml:"maxOpenConns"`
	MaxIdleConns           int `toml:"maxIdleConns"`
	ConnMaxLifetimeMinutes int `toml:"connMaxLifetimeMinutes"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	TaskTopic       string   `toml:"taskTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
}

type DriveConfig struct {
	BaseURL             string `toml:"baseURL"`
	AccessToken         string `toml:"accessToken"`
	Query               string `toml:"query"`
	PageSize            int    `toml:"pageSize"`
	ScanIntervalSeconds int    `toml:"scanIntervalSeconds"`
	TimeoutSeconds      int    `toml:"timeoutSeconds"`
}

type EtlConfig struct {
	BatchSize               int    `toml:"batchSize"`
	MaxFileSizeMB           int64  `toml:"maxFileSizeMB"`
	MaxRetries              int    `toml:"maxRetries"`
	RetryBackoffSeconds     int    `toml:"retryBackoffSeconds"`
	DBConcurrency           int64  `toml:"dbConcurrency"`
	StatsRefreshEvery       int64  `toml:"statsRefreshEvery"`
	StatsRefreshCron        string `toml:"statsRefreshCron"`
	BreakerFailureThreshold int    `toml:"breakerFailureThreshold"`
	BreakerRecoverySeconds  int    `toml:"breakerRecoverySeconds"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
}

type Config struct {
	MainConfig  `toml:"mainConfig"`
	MysqlConfig `toml:"mysqlConfig"`
	RedisConfig `toml:"redisConfig"`
	KafkaConfig `toml:"kafkaConfig"`
	DriveConfig `toml:"driveConfig"`
	EtlConfig   `toml:"etlConfig"`
	LogConfig   `toml:"logConfig"`
}

var config *Config

func LoadConfig() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config_local.toml"
	}
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("failed to load config %s: %v, falling back to defaults", configPath, err)
		return err
	}
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.applyDefaults()
	}
	return config
}

func (c *Config) applyDefaults() {
	if c.MysqlConfig.MaxOpenConns <= 0 {
		c.MysqlConfig.MaxOpenConns = 20
	}
	if c.MysqlConfig.MaxIdleConns <= 0 {
		c.MysqlConfig.MaxIdleConns = 10
	}
	if c.MysqlConfig.ConnMaxLifetimeMinutes <= 0 {
		c.MysqlConfig.ConnMaxLifetimeMinutes = 30
	}
	if c.DriveConfig.Query == "" {
		c.DriveConfig.Query = "mimeType='text/csv' and trashed=false"
	}
	if c.DriveConfig.PageSize <= 0 {
		c.DriveConfig.PageSize = 10
	}
	if c.DriveConfig.ScanIntervalSeconds <= 0 {
		c.DriveConfig.ScanIntervalSeconds = 60
	}
	if c.DriveConfig.TimeoutSeconds <= 0 {
		c.DriveConfig.TimeoutSeconds = 120
	}
	if c.EtlConfig.BatchSize <= 0 {
		c.EtlConfig.BatchSize = 2000
	}
	if c.EtlConfig.MaxFileSizeMB <= 0 {
		c.EtlConfig.MaxFileSizeMB = 100
	}
	if c.EtlConfig.MaxRetries <= 0 {
		c.EtlConfig.MaxRetries = 3
	}
	if c.EtlConfig.RetryBackoffSeconds <= 0 {
		c.EtlConfig.RetryBackoffSeconds = 60
	}
	if c.EtlConfig.DBConcurrency <= 0 {
		c.EtlConfig.DBConcurrency = 10
	}
	if c.EtlConfig.StatsRefreshEvery <= 0 {
		c.EtlConfig.StatsRefreshEvery = 50
	}
	if c.EtlConfig.StatsRefreshCron == "" {
		c.EtlConfig.StatsRefreshCron = "0 3 * * *"
	}
	if c.EtlConfig.BreakerFailureThreshold <= 0 {
		c.EtlConfig.BreakerFailureThreshold = 5
	}
	if c.EtlConfig.BreakerRecoverySeconds <= 0 {
		c.EtlConfig.BreakerRecoverySeconds = 300
	}
}
