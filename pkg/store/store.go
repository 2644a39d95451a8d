package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/CTAG07/Verbena/pkg/markov"
)

// ErrModelNotFound is returned when no model with the requested name exists.
var ErrModelNotFound = errors.New("store: model not found")

// ModelInfo holds the essential metadata for a stored model, including its
// unique ID, name, and the order of the chain.
type ModelInfo struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ModelStats holds row counts for a single stored model.
type ModelStats struct {
	Contexts      int `json:"contexts"`      // The number of distinct contexts
	Continuations int `json:"continuations"` // The total number of recorded transitions
}

// Store is the entry point for saving and loading models. It holds the
// database connection and prepared SQL statements for efficient database
// interaction.
type Store struct {
	db                   *sql.DB
	stmtGetModelInfo     *sql.Stmt
	stmtGetModels        *sql.Stmt
	stmtModelContexts    *sql.Stmt
	stmtModelTransitions *sql.Stmt
	stmtLoadModel        *sql.Stmt
	stmtKeyScopes        *sql.Stmt
	logger               *slog.Logger
}

// New creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails. SetupSchema must
// have been run on db first.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var err error
	var prepared []*sql.Stmt
	prepare := func(dst **sql.Stmt, query string) {
		if err != nil {
			return
		}
		if *dst, err = db.Prepare(query); err == nil {
			prepared = append(prepared, *dst)
		}
	}

	prepare(&s.stmtGetModelInfo, `SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	prepare(&s.stmtGetModels, `SELECT model_id, model_name, model_order FROM markov_models ORDER BY model_name;`)
	prepare(&s.stmtModelContexts, `SELECT COUNT(*) FROM markov_contexts WHERE model_id = ?;`)
	prepare(&s.stmtModelTransitions, `
SELECT COUNT(*) FROM markov_continuations n
JOIN markov_contexts c ON c.context_id = n.context_id
WHERE c.model_id = ?;`)
	prepare(&s.stmtLoadModel, `
SELECT c.context_id, c.context_text, n.token_text FROM markov_contexts c
JOIN markov_continuations n ON n.context_id = c.context_id
WHERE c.model_id = ?
ORDER BY c.position, n.position;`)
	prepare(&s.stmtKeyScopes, `SELECT scopes FROM api_keys WHERE key_hash = ?;`)

	if err != nil {
		for _, stmt := range prepared {
			_ = stmt.Close()
		}
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return s, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetModelInfo.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtModelContexts.Close()
	_ = s.stmtModelTransitions.Close()
	_ = s.stmtLoadModel.Close()
	_ = s.stmtKeyScopes.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetModelInfo retrieves the metadata for a single model specified by name.
func (s *Store) GetModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	var modelId, modelOrder int
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&modelId, &modelOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelInfo{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
		}
		return ModelInfo{}, err
	}
	return ModelInfo{
		Id:    modelId,
		Name:  name,
		Order: modelOrder,
	}, nil
}

// ListModels retrieves metadata for all stored models, sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make([]ModelInfo, 0)
	for rows.Next() {
		var model ModelInfo
		if err = rows.Scan(&model.Id, &model.Name, &model.Order); err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Stats returns row counts for the named model.
func (s *Store) Stats(ctx context.Context, name string) (ModelStats, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return ModelStats{}, err
	}
	var stats ModelStats
	if err = s.stmtModelContexts.QueryRowContext(ctx, info.Id).Scan(&stats.Contexts); err != nil {
		return ModelStats{}, err
	}
	if err = s.stmtModelTransitions.QueryRowContext(ctx, info.Id).Scan(&stats.Continuations); err != nil {
		return ModelStats{}, err
	}
	return stats, nil
}

// SaveModel writes m under name, replacing any model already stored with that
// name. The operation is performed within a single transaction.
func (s *Store) SaveModel(ctx context.Context, name string, m *markov.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.QueryRowContext(ctx, "SELECT model_id FROM markov_models WHERE model_name = ?", name).Scan(&modelID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, "INSERT INTO markov_models (model_name, model_order) VALUES (?, ?) RETURNING model_id", name, m.Order()).Scan(&modelID)
		if err != nil {
			return fmt.Errorf("failed to insert new model '%s': %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to query for model '%s': %w", name, err)
	default:
		if err = deleteModelData(ctx, tx, modelID); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, "UPDATE markov_models SET model_order = ? WHERE model_id = ?", m.Order(), modelID); err != nil {
			return fmt.Errorf("failed to update order of model '%s': %w", name, err)
		}
	}

	stmtInsertContext, err := tx.PrepareContext(ctx, `INSERT INTO markov_contexts (model_id, position, context_text) VALUES (?, ?, ?) RETURNING context_id;`)
	if err != nil {
		return fmt.Errorf("failed to prepare context insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertContext)

	stmtInsertContinuation, err := tx.PrepareContext(ctx, `INSERT INTO markov_continuations (context_id, position, token_text) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare continuation insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertContinuation)

	var continuations int
	transitions := m.Transitions()
	for i, t := range transitions {
		contextText, err := encodeContext(t.Context)
		if err != nil {
			return err
		}
		var contextID int
		if err = stmtInsertContext.QueryRowContext(ctx, modelID, i, contextText).Scan(&contextID); err != nil {
			return fmt.Errorf("failed to insert context %s: %w", contextText, err)
		}
		for j, next := range t.Next {
			if _, err = stmtInsertContinuation.ExecContext(ctx, contextID, j, next); err != nil {
				return fmt.Errorf("failed to insert continuation (%s -> %s): %w", contextText, next, err)
			}
		}
		continuations += len(t.Next)
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("contexts_saved", len(transitions)),
		slog.Int("continuations_saved", continuations),
	)

	return tx.Commit()
}

// LoadModel reads the named model back into memory. Options are passed to
// markov.Restore. ErrModelNotFound is returned when no such model exists.
func (s *Store) LoadModel(ctx context.Context, name string, opts ...markov.ModelOption) (*markov.Model, error) {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtLoadModel.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query transitions for model '%s': %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var transitions []markov.Transition
	lastContextID := -1
	for rows.Next() {
		var contextID int
		var contextText, token string
		if err = rows.Scan(&contextID, &contextText, &token); err != nil {
			return nil, err
		}
		if contextID != lastContextID {
			ctxTokens, err := decodeContext(contextText)
			if err != nil {
				return nil, err
			}
			transitions = append(transitions, markov.Transition{Context: ctxTokens})
			lastContextID = contextID
		}
		last := &transitions[len(transitions)-1]
		last.Next = append(last.Next, token)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	m, err := markov.Restore(info.Order, transitions, opts...)
	if err != nil {
		return nil, fmt.Errorf("stored model '%s' is inconsistent: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("contexts_loaded", len(transitions)),
	)
	return m, nil
}

// RemoveModel deletes a model and all of its associated data from the
// database. The operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, name string) error {
	info, err := s.GetModelInfo(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err = deleteModelData(ctx, tx, info.Id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_models WHERE model_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", info.Name),
		slog.Int("model_id", info.Id),
	)

	return tx.Commit()
}

// deleteModelData removes every context and continuation of a model, leaving
// the model row itself in place.
func deleteModelData(ctx context.Context, tx *sql.Tx, modelID int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM markov_continuations WHERE context_id IN (SELECT context_id FROM markov_contexts WHERE model_id = ?)", modelID); err != nil {
		return fmt.Errorf("failed to remove continuations for model %d: %w", modelID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM markov_contexts WHERE model_id = ?", modelID); err != nil {
		return fmt.Errorf("failed to remove contexts for model %d: %w", modelID, err)
	}
	return nil
}

// encodeContext stores a context as a JSON array so tokens may contain any
// character, including spaces.
func encodeContext(ctx markov.Context) (string, error) {
	data, err := json.Marshal([]string(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}
	return string(data), nil
}

func decodeContext(text string) (markov.Context, error) {
	var tokens []string
	if err := json.Unmarshal([]byte(text), &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode context %q: %w", text, err)
	}
	return tokens, nil
}
