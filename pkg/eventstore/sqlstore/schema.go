package sqlstore

import "fmt"

// Schema holds the DDL for the three tables under a caller-chosen schema
// namespace (§6: "all tables live in a caller-chosen schema namespace").
// Migrations themselves run out-of-band (spec.md §1 non-goals); DDL() is a
// convenience for tests and local bootstrapping, not a migration runner.
type Schema struct {
	Namespace string
}

// NewSchema returns a Schema for the given Postgres schema namespace
// ("public" when empty).
func NewSchema(namespace string) Schema {
	if namespace == "" {
		namespace = "public"
	}
	return Schema{Namespace: namespace}
}

func (s Schema) table(name string) string {
	return fmt.Sprintf("%s.%s", s.Namespace, name)
}

// DDL returns the CREATE TABLE/INDEX statements for events, relations and
// snapshots, matching the layout in spec.md §6.
func (s Schema) DDL() []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.Namespace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			stream TEXT NOT NULL,
			type TEXT NOT NULL,
			data JSONB NOT NULL,
			meta JSONB NOT NULL,
			recorded TEXT NOT NULL,
			created TEXT NOT NULL
		)`, s.table("events")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_stream_idx ON %s (stream)`, "events", s.table("events")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_type_idx ON %s (type)`, "events", s.table("events")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_recorded_idx ON %s (recorded)`, "events", s.table("events")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_idx ON %s (created)`, "events", s.table("events")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			key TEXT NOT NULL,
			stream TEXT NOT NULL,
			UNIQUE (key, stream)
		)`, s.table("relations")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_key_idx ON %s (key)`, "relations", s.table("relations")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_stream_idx ON %s (stream)`, "relations", s.table("relations")),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			stream TEXT NOT NULL,
			cursor TEXT NOT NULL,
			state JSONB NOT NULL
		)`, s.table("snapshots")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_name_stream_cursor_idx ON %s (name, stream, cursor)`, "snapshots", s.table("snapshots")),
	}
}
