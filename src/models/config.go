package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	LogLevel   string            `yaml:"log_level"`
	Control    MControlConfig    `yaml:"control"`
	Grpc       MGrpcConfig       `yaml:"grpc"`
	Viewer     MViewerConfig     `yaml:"viewer"`
	Engine     MEngineConfig     `yaml:"engine"`
	Cache      MCacheConfig      `yaml:"cache"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
}

// Balance returns the configured seed balance.
func (e MEngineConfig) Balance() float64 {
	if e.InitialBalance == nil {
		return 0
	}
	return *e.InitialBalance
}

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	return c.LogLevel
}

type MControlConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxMessageBytes     int    `yaml:"max_message_bytes"`
}

type MGrpcConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type MViewerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

type MEngineConfig struct {
	Instrument          string   `yaml:"instrument"`
	Strategy            string   `yaml:"strategy"`
	InitialBalance      *float64 `yaml:"initial_balance"` // nil = 10000
	TickIntervalSeconds int      `yaml:"tick_interval_seconds"`
	WaitTimeoutSeconds  int      `yaml:"wait_timeout_seconds"`
	TradeAmount         float64  `yaml:"trade_amount"`
	MarketHoursOnly     bool     `yaml:"market_hours_only"`
}

type MCacheConfig struct {
	MaxEntries         int `yaml:"max_entries"` // 0 = unbounded
	LoadTimeoutSeconds int `yaml:"load_timeout_seconds"`
}

type MDataSourceConfig struct {
	Name         string `yaml:"name"`
	HistoryStart string `yaml:"history_start"` // YYYY-MM-DD
	HistoryEnd   string `yaml:"history_end"`   // YYYY-MM-DD, empty = today
	EMASpan      int    `yaml:"ema_span"`
	MAWindow     int    `yaml:"ma_window"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite | postgres | redis
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Schema             string `yaml:"schema"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisPassword      string `yaml:"redis_password"`
	RedisStream        string `yaml:"redis_stream"`
	Required           bool   `yaml:"required"`
}

type MNetworkConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Proxies           []string `yaml:"proxies"`
	RequestTimeout    int      `yaml:"timeout"`
	MaxRetries        int      `yaml:"retries"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	UserAgent         string   `yaml:"user_agent"`
}
