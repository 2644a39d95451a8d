package store

import (
	"database/sql"
	"fmt"
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaContexts = `
CREATE TABLE IF NOT EXISTS markov_contexts (
    context_id INTEGER PRIMARY KEY,
    model_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    context_text TEXT NOT NULL,
    UNIQUE (model_id, position)
);
`
		schemaKeys = `
CREATE TABLE IF NOT EXISTS api_keys (
    id            INTEGER   PRIMARY KEY,
    key_hash      TEXT      NOT NULL UNIQUE,
    scopes        TEXT      NOT NULL,
    description   TEXT      NOT NULL
);
`
		schemaContinuations = `
CREATE TABLE IF NOT EXISTS markov_continuations (
    context_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    PRIMARY KEY (context_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaContexts); err != nil {
		return fmt.Errorf("could not create contexts schema: %w", err)
	}

	if _, err = tx.Exec(schemaContinuations); err != nil {
		return fmt.Errorf("could not create continuations schema: %w", err)
	}

	if _, err = tx.Exec(schemaKeys); err != nil {
		return fmt.Errorf("could not create api keys schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}
