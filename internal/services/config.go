package services

const (
	DefaultMySQLVersion    = "8.0"
	DefaultPostgresVersion = "16"
)

// Config selects the backing services for a session. A nil pointer means the
// service is not requested.
type Config struct {
	MySQL    *MySQLConfig    `mapstructure:"mysql" toml:"mysql,omitempty"`
	Redis    bool            `mapstructure:"redis" toml:"redis"`
	Postgres *PostgresConfig `mapstructure:"postgres" toml:"postgres,omitempty"`
}

type MySQLConfig struct {
	Version  string `mapstructure:"version" toml:"version"`
	Database string `mapstructure:"database" toml:"database"`
	Username string `mapstructure:"username" toml:"username"`
	Password string `mapstructure:"password" toml:"password"`
}

type PostgresConfig struct {
	Version  string `mapstructure:"version" toml:"version"`
	Database string `mapstructure:"database" toml:"database"`
	Username string `mapstructure:"username" toml:"username"`
	Password string `mapstructure:"password" toml:"password"`
}

// DefaultMySQLConfig returns root/password credentials on database "app".
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Version:  DefaultMySQLVersion,
		Database: "app",
		Username: "root",
		Password: "password",
	}
}

// DefaultPostgresConfig returns postgres/password credentials on database "app".
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Version:  DefaultPostgresVersion,
		Database: "app",
		Username: "postgres",
		Password: "password",
	}
}

// WithDefaults fills empty fields from DefaultMySQLConfig.
func (c MySQLConfig) WithDefaults() MySQLConfig {
	d := DefaultMySQLConfig()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Username == "" {
		c.Username = d.Username
	}
	if c.Password == "" {
		c.Password = d.Password
	}
	return c
}

// WithDefaults fills empty fields from DefaultPostgresConfig.
func (c PostgresConfig) WithDefaults() PostgresConfig {
	d := DefaultPostgresConfig()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.Username == "" {
		c.Username = d.Username
	}
	if c.Password == "" {
		c.Password = d.Password
	}
	return c
}
