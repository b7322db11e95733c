// Package config 提供配置加载功能
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RelayConfig roomrelay 配置
type RelayConfig struct {
	Session SessionConfig `yaml:"session"`
	Room    RelayRoom     `yaml:"room"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	AppID          string `yaml:"app_id"`
	AppKey         string `yaml:"app_key"`
	UserID         string `yaml:"user_id"`
	GameVersion    string `yaml:"game_version"`
	AppRouterURL   string `yaml:"app_router_url"`
	LobbyRouterURL string `yaml:"lobby_router_url"`
	Insecure       bool   `yaml:"insecure"`
}

// RelayRoom 转发目标房间配置
type RelayRoom struct {
	Name           string   `yaml:"name"`
	MaxPlayerCount int      `yaml:"max_player_count"`
	LobbyAttrKeys  []string `yaml:"lobby_attr_keys"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoadRelayConfig 加载 roomrelay 配置
func LoadRelayConfig(path string) (*RelayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg RelayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
