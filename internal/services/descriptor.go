// Package services describes the backing service containers (databases and
// caches) that run next to the dev container on the session network.
//
// Descriptor is a closed sum type: the set of supported services is fixed and
// every operation switches over Kind exhaustively.
package services

import "fmt"

// Kind identifies a supported backing service.
type Kind int

const (
	KindMySQL Kind = iota + 1
	KindPostgres
	KindRedis
)

func (k Kind) String() string {
	switch k {
	case KindMySQL:
		return "mysql"
	case KindPostgres:
		return "postgres"
	case KindRedis:
		return "redis"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Volume is a named volume mounted into a service container for persistence.
type Volume struct {
	Name   string
	Target string
}

// String returns the volume in "name:target" form.
func (v Volume) String() string {
	return v.Name + ":" + v.Target
}

// Descriptor is one configured backing service. Only the payload matching Kind
// is meaningful.
type Descriptor struct {
	Kind     Kind
	MySQL    MySQLConfig
	Postgres PostgresConfig
	project  string
}

// NewMySQL describes a MySQL service for the project.
func NewMySQL(cfg MySQLConfig, project string) Descriptor {
	return Descriptor{Kind: KindMySQL, MySQL: cfg.WithDefaults(), project: project}
}

// NewPostgres describes a PostgreSQL service for the project.
func NewPostgres(cfg PostgresConfig, project string) Descriptor {
	return Descriptor{Kind: KindPostgres, Postgres: cfg.WithDefaults(), project: project}
}

// NewRedis describes a Redis service for the project.
func NewRedis(project string) Descriptor {
	return Descriptor{Kind: KindRedis, project: project}
}

// Name is the short name used as the network alias and in resource names.
func (d Descriptor) Name() string {
	return d.Kind.String()
}

// Project returns the project the service belongs to.
func (d Descriptor) Project() string {
	return d.project
}

// Image returns the image reference including its version tag.
func (d Descriptor) Image() string {
	switch d.Kind {
	case KindMySQL:
		return "mysql:" + d.MySQL.Version
	case KindPostgres:
		return "postgres:" + d.Postgres.Version
	case KindRedis:
		return "redis:alpine"
	default:
		return ""
	}
}

// ContainerEnv returns the environment of the service container itself.
func (d Descriptor) ContainerEnv() []string {
	switch d.Kind {
	case KindMySQL:
		env := []string{
			"MYSQL_ROOT_PASSWORD=" + d.MySQL.Password,
			"MYSQL_DATABASE=" + d.MySQL.Database,
		}
		// the mysql image rejects MYSQL_USER=root
		if d.MySQL.Username != "root" {
			env = append(env,
				"MYSQL_USER="+d.MySQL.Username,
				"MYSQL_PASSWORD="+d.MySQL.Password,
			)
		}
		return env
	case KindPostgres:
		return []string{
			"POSTGRES_USER=" + d.Postgres.Username,
			"POSTGRES_PASSWORD=" + d.Postgres.Password,
			"POSTGRES_DB=" + d.Postgres.Database,
		}
	default:
		return nil
	}
}

// DevEnv returns the connection parameters injected into the dev container.
// SQL engines share the DB_* prefix; Redis uses REDIS_*.
func (d Descriptor) DevEnv() []string {
	switch d.Kind {
	case KindMySQL:
		return []string{
			"DB_HOST=mysql",
			"DB_PORT=3306",
			"DB_DATABASE=" + d.MySQL.Database,
			"DB_USERNAME=" + d.MySQL.Username,
			"DB_PASSWORD=" + d.MySQL.Password,
		}
	case KindPostgres:
		return []string{
			"DB_HOST=postgres",
			"DB_PORT=5432",
			"DB_DATABASE=" + d.Postgres.Database,
			"DB_USERNAME=" + d.Postgres.Username,
			"DB_PASSWORD=" + d.Postgres.Password,
		}
	case KindRedis:
		return []string{
			"REDIS_HOST=redis",
			"REDIS_PORT=6379",
		}
	default:
		return nil
	}
}

// Volume returns the named volume for the service, if it persists data.
func (d Descriptor) Volume() (Volume, bool) {
	switch d.Kind {
	case KindMySQL:
		return Volume{Name: d.volumeName(), Target: "/var/lib/mysql"}, true
	case KindPostgres:
		return Volume{Name: d.volumeName(), Target: "/var/lib/postgresql/data"}, true
	default:
		return Volume{}, false
	}
}

// ReadinessCommand returns the probe executed inside the service container.
// A zero exit status means the service accepts connections.
func (d Descriptor) ReadinessCommand() []string {
	switch d.Kind {
	case KindMySQL:
		return []string{"mysqladmin", "ping", "-h", "127.0.0.1", "--silent"}
	case KindPostgres:
		return []string{"pg_isready", "-U", d.Postgres.Username}
	case KindRedis:
		return []string{"redis-cli", "ping"}
	default:
		return nil
	}
}

// ContainerName returns "bubble-<project>-<service>".
func (d Descriptor) ContainerName() string {
	return fmt.Sprintf("bubble-%s-%s", d.project, d.Name())
}

func (d Descriptor) volumeName() string {
	return fmt.Sprintf("bubble-%s-%s-data", d.project, d.Name())
}
