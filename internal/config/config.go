package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Queue      QueueConfig
	OpenAI     OpenAIConfig
	Storage    StorageConfig
	Notifier   NotifierConfig
	Generation GenerationConfig
}

// ServerConfig содержит настройки админского HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит настройки подключения к Redis.
// Один инстанс обслуживает и очередь задач (asynq), и кеш содержимого документов
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// QueueConfig содержит настройки консьюмера задач
type QueueConfig struct {
	// Concurrency: сколько задач генерации обрабатывается параллельно
	Concurrency int `mapstructure:"concurrency"`
	// ShutdownTimeoutSec: сколько секунд ждать завершения задач при остановке
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec"`
}

// OpenAIConfig содержит настройки LLM клиента
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StorageConfig содержит настройки объектного хранилища (Supabase Storage)
type StorageConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Bucket string `mapstructure:"bucket"`
}

// NotifierConfig содержит настройки отправки отчетов об ошибках генерации
type NotifierConfig struct {
	// Mode: "discord", "email" или "noop"
	Mode string `mapstructure:"mode"`

	// DiscordWebhookURL: URL вебхука канала для отчетов
	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`

	// Настройки email-отчетов через Resend
	ResendAPIKey string `mapstructure:"resend_api_key"`
	EmailFrom    string `mapstructure:"email_from"`
	EmailTo      string `mapstructure:"email_to"`
}

// GenerationConfig содержит настройки прохода генерации квизов
type GenerationConfig struct {
	// ChunkSize: максимальный размер сегмента текста для одного запроса к LLM
	ChunkSize int `mapstructure:"chunk_size"`
	// ChunkOverlap: перекрытие соседних сегментов
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	// MinQuizCount: порог компенсации — если без целевого количества
	// сгенерировано <= MinQuizCount вопросов, весь проход откатывается
	MinQuizCount int `mapstructure:"min_quiz_count"`
	// PrevQuestionWindow: сколько последних вопросов передавать в промпт
	// для избежания дублей
	PrevQuestionWindow int `mapstructure:"prev_question_window"`
	// FallbackCategoryID: категория-заглушка при неудачной генерации метаданных
	FallbackCategoryID uint `mapstructure:"fallback_category_id"`
	// PromptDir: каталог с файлами промптов
	PromptDir string `mapstructure:"prompt_dir"`
	// ContentCacheTTLSec: TTL кеша содержимого документа в секундах
	ContentCacheTTLSec int `mapstructure:"content_cache_ttl_sec"`
	// FirstQuizSetSize: размер первого сета "квизов дня"
	FirstQuizSetSize int `mapstructure:"first_quiz_set_size"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisURI формирует URI для asynq.ParseRedisURI
func (r *RedisConfig) RedisURI() string {
	if r.Password != "" {
		return fmt.Sprintf("redis://:%s@%s/%d", r.Password, r.Addr, r.DB)
	}
	return fmt.Sprintf("redis://%s/%d", r.Addr, r.DB)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 10)
	vip.SetDefault("server.writetimeout", 10)
	vip.SetDefault("queue.concurrency", 5)
	vip.SetDefault("queue.shutdown_timeout_sec", 30)
	vip.SetDefault("openai.model", "gpt-4o-mini")
	vip.SetDefault("notifier.mode", "noop")
	vip.SetDefault("generation.chunk_size", 2000)
	vip.SetDefault("generation.chunk_overlap", 100)
	vip.SetDefault("generation.min_quiz_count", 5)
	vip.SetDefault("generation.prev_question_window", 6)
	vip.SetDefault("generation.fallback_category_id", 6)
	vip.SetDefault("generation.prompt_dir", "prompts")
	vip.SetDefault("generation.content_cache_ttl_sec", 600)
	vip.SetDefault("generation.first_quiz_set_size", 10)

	// Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")

	vip.BindEnv("server.port", "SERVER_PORT")

	vip.BindEnv("queue.concurrency", "QUEUE_CONCURRENCY")

	vip.BindEnv("openai.api_key", "OPENAI_API_KEY")
	vip.BindEnv("openai.model", "OPENAI_MODEL")

	vip.BindEnv("storage.url", "STORAGE_URL")
	vip.BindEnv("storage.api_key", "STORAGE_API_KEY")
	vip.BindEnv("storage.bucket", "STORAGE_BUCKET")

	vip.BindEnv("notifier.mode", "NOTIFIER_MODE")
	vip.BindEnv("notifier.discord_webhook_url", "NOTIFIER_DISCORD_WEBHOOK_URL")
	vip.BindEnv("notifier.resend_api_key", "NOTIFIER_RESEND_API_KEY")
	vip.BindEnv("notifier.email_from", "NOTIFIER_EMAIL_FROM")
	vip.BindEnv("notifier.email_to", "NOTIFIER_EMAIL_TO")

	vip.BindEnv("generation.min_quiz_count", "GENERATION_MIN_QUIZ_COUNT")
	vip.BindEnv("generation.chunk_size", "GENERATION_CHUNK_SIZE")

	// Путь к файлу конфигурации (не страшно, если файла нет — есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// Анмаршалим конфигурацию (Viper объединит файл и привязанные env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Queue Concurrency: %d", cfg.Queue.Concurrency)
		log.Printf("OpenAI Model: %s", cfg.OpenAI.Model)
		log.Printf("Storage Bucket: %s", cfg.Storage.Bucket)
		log.Printf("Notifier Mode: %s", cfg.Notifier.Mode)
		log.Printf("Generation MinQuizCount: %d", cfg.Generation.MinQuizCount)
	}

	return &cfg, nil
}
