package services

// Collect returns the configured services in a fixed order: SQL engines first
// (MySQL, then PostgreSQL), then Redis. The order determines how colliding
// DB_* keys layer in the dev container environment.
func Collect(cfg Config, project string) []Descriptor {
	var out []Descriptor
	if cfg.MySQL != nil {
		out = append(out, NewMySQL(*cfg.MySQL, project))
	}
	if cfg.Postgres != nil {
		out = append(out, NewPostgres(*cfg.Postgres, project))
	}
	if cfg.Redis {
		out = append(out, NewRedis(project))
	}
	return out
}

// CollectDevEnv concatenates the dev-container environment of every service in
// collection order. Duplicate keys are kept; the engine applies the last one.
func CollectDevEnv(descriptors []Descriptor) []string {
	var env []string
	for _, d := range descriptors {
		env = append(env, d.DevEnv()...)
	}
	return env
}

// SQLEngines returns the names of the enabled services that contribute DB_*
// variables. More than one means their connection parameters collide.
func SQLEngines(descriptors []Descriptor) []string {
	var names []string
	for _, d := range descriptors {
		switch d.Kind {
		case KindMySQL, KindPostgres:
			names = append(names, d.Name())
		}
	}
	return names
}
