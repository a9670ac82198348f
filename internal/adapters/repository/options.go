package repository

// Option applies a configuration option to the PostgresStore.
type Option func(*PostgresStore)

// WithTable sets the destination table. Defaults to auction_roster.
func WithTable(table string) Option {
	return func(s *PostgresStore) {
		if table != "" {
			s.table = table
		}
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxConns = n
		}
	}
}
