package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Logger   LoggerConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Realtime RealtimeConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL string
}

// RealtimeConfig contains realtime channel configuration.
// StreamURL and BrokerURL are resolved with precedence: explicit client
// option, then these env-backed values, then the hardcoded defaults in
// the constants package.
type RealtimeConfig struct {
	StreamURL     string
	BrokerURL     string
	DeviceID      string
	RiderID       string
	TokenFilePath string
}
