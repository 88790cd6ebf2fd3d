package config

// Supported gorm engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras     string // driver specific DSN parameters
	Host       string
	Port       int
	User       string
	Password   string
	Name       string // database name, or file path for sqlite
	GormEngine string // mysql, postgres or sqlite
	LogLevel   string // gorm log level: silent, error, warn or info
}
