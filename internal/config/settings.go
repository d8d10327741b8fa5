package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// KeysConfig holds the default credentials for the external services.
// Each can be overridden per connection via query parameters.
type KeysConfig struct {
	AssemblyAI string `mapstructure:"assemblyai"`
	Gemini     string `mapstructure:"gemini"`
	Murf       string `mapstructure:"murf"`
	News       string `mapstructure:"news"`
}

type VoiceConfig struct {
	DefaultVoiceID string `mapstructure:"default_voice_id"`
	Style          string `mapstructure:"style"`
	SampleRate     int    `mapstructure:"sample_rate"`
	ChannelType    string `mapstructure:"channel_type"`
	Format         string `mapstructure:"format"`
	// Inbound microphone audio from the browser client.
	STTSampleRate int `mapstructure:"stt_sample_rate"`
}

type LLMConfig struct {
	Provider    string   `mapstructure:"provider"` // gemini | openai | ollama
	GeminiModel string   `mapstructure:"gemini_model"`
	OpenAIModel string   `mapstructure:"openai_model"`
	OpenAIKey   string   `mapstructure:"openai_key"`
	OllamaURLs  []string `mapstructure:"ollama_urls"`
	OllamaModel string   `mapstructure:"ollama_model"`
}

// TurnConfig bounds one conversational turn.
type TurnConfig struct {
	Budget       time.Duration `mapstructure:"budget"`
	CancelGrace  time.Duration `mapstructure:"cancel_grace"`
	SkillTimeout time.Duration `mapstructure:"skill_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLMins  int64  `mapstructure:"ttl_mins"`
}

type Settings struct {
	Server  ServerConfig `mapstructure:"server"`
	Keys    KeysConfig   `mapstructure:"keys"`
	Voice   VoiceConfig  `mapstructure:"voice"`
	LLM     LLMConfig    `mapstructure:"llm"`
	Turn    TurnConfig   `mapstructure:"turn"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Persona string       `mapstructure:"persona"`
	Env     string       `mapstructure:"env"`
	Debug   bool         `mapstructure:"debug"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.static_dir", "static")
	viper.SetDefault("persona", "friendly")
	viper.SetDefault("voice.default_voice_id", "en-IN-isha")
	viper.SetDefault("voice.style", "Conversational")
	viper.SetDefault("voice.sample_rate", 44100)
	viper.SetDefault("voice.channel_type", "MONO")
	viper.SetDefault("voice.format", "MP3")
	viper.SetDefault("voice.stt_sample_rate", 16000)
	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.gemini_model", "gemini-1.5-flash-002")
	viper.SetDefault("llm.openai_model", "gpt-4o-mini")
	viper.SetDefault("llm.ollama_model", "llama3.1:8b-instruct")
	viper.SetDefault("turn.budget", "60s")
	viper.SetDefault("turn.cancel_grace", "5s")
	viper.SetDefault("turn.skill_timeout", "10s")
	viper.SetDefault("redis.ttl_mins", 0)
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
