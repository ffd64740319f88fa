// Package storage is the embedded SQLite graph store backend. It keeps the
// property graph in .tracekg/trace.db so teams can build and query without
// running a Neo4j server.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tracekg/internal/errors"
	"tracekg/internal/logging"
	"tracekg/internal/model"
	"tracekg/internal/store"
)

const schemaVersion = 1

// SQLite implements the graph store on an embedded database. Edges are
// stored independently of their endpoints, so a reference can be recorded
// before anything defines it.
type SQLite struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

var _ store.Store = (*SQLite)(nil)

// Open opens or creates the graph database at <workDir>/.tracekg/trace.db.
func Open(workDir string, logger *logging.Logger) (*SQLite, error) {
	dir := filepath.Join(workDir, ".tracekg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "creating "+dir, err)
	}

	dbPath := filepath.Join(dir, "trace.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "opening "+dbPath, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-16000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.StoreUnavailable, "setting pragma", err)
		}
	}

	s := &SQLite{conn: conn, logger: logger, dbPath: dbPath}
	if err := s.initializeSchema(); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.StoreUnavailable, "initializing schema", err)
	}
	return s, nil
}

func (s *SQLite) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS nodes (
			label TEXT NOT NULL,
			key TEXT NOT NULL,
			props TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (label, key)
		);

		CREATE TABLE IF NOT EXISTS edges (
			src_label TEXT NOT NULL,
			src_key TEXT NOT NULL,
			dst_label TEXT NOT NULL,
			dst_key TEXT NOT NULL,
			type TEXT NOT NULL,
			props TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (src_label, src_key, dst_label, dst_key, type)
		);
		CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_label, dst_key);
		CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	_, err := s.conn.Exec(
		`INSERT OR IGNORE INTO schema_meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", schemaVersion))
	return err
}

// withTx executes fn within a transaction, rolling back on error or panic.
func (s *SQLite) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.StoreUnavailable, "beginning transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("transaction rollback failed", map[string]interface{}{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.StoreUnavailable, "committing transaction", err)
	}
	return nil
}

func (s *SQLite) UpsertNode(ctx context.Context, n model.Node) (bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT props FROM nodes WHERE label = ? AND key = ?`,
			string(n.Label), n.Key).Scan(&existing)

		switch {
		case err == sql.ErrNoRows:
			props, err := marshalProps(n.Props)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO nodes (label, key, props) VALUES (?, ?, ?)`,
				string(n.Label), n.Key, props)
			created = true
			return err
		case err != nil:
			return err
		}

		merged, err := mergeProps(existing, n.Props)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE nodes SET props = ? WHERE label = ? AND key = ?`,
			merged, string(n.Label), n.Key)
		return err
	})
	return created, err
}

func (s *SQLite) UpsertEdge(ctx context.Context, e model.Edge) (bool, error) {
	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx, `
			SELECT props FROM edges
			WHERE src_label = ? AND src_key = ? AND dst_label = ? AND dst_key = ? AND type = ?`,
			string(e.SrcLabel), e.SrcKey, string(e.DstLabel), e.DstKey, string(e.Type)).Scan(&existing)

		switch {
		case err == sql.ErrNoRows:
			props, err := marshalProps(e.Props)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO edges (src_label, src_key, dst_label, dst_key, type, props)
				VALUES (?, ?, ?, ?, ?, ?)`,
				string(e.SrcLabel), e.SrcKey, string(e.DstLabel), e.DstKey, string(e.Type), props)
			created = true
			return err
		case err != nil:
			return err
		}

		if len(e.Props) == 0 {
			return nil
		}
		merged, err := mergeProps(existing, e.Props)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE edges SET props = ?
			WHERE src_label = ? AND src_key = ? AND dst_label = ? AND dst_key = ? AND type = ?`,
			merged, string(e.SrcLabel), e.SrcKey, string(e.DstLabel), e.DstKey, string(e.Type))
		return err
	})
	return created, err
}

func (s *SQLite) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM nodes`)
		return err
	})
}

func (s *SQLite) NodeExists(ctx context.Context, label model.Label, key string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM nodes WHERE label = ? AND key = ?`,
		string(label), key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.StoreUnavailable, "querying node", err)
	}
	return true, nil
}

func (s *SQLite) Node(ctx context.Context, label model.Label, key string) (*model.Node, error) {
	var props string
	err := s.conn.QueryRowContext(ctx,
		`SELECT props FROM nodes WHERE label = ? AND key = ?`,
		string(label), key).Scan(&props)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "querying node", err)
	}

	parsed, err := unmarshalProps(props)
	if err != nil {
		return nil, err
	}
	return &model.Node{Label: label, Key: key, Props: parsed}, nil
}

func (s *SQLite) NodesByLabel(ctx context.Context, label model.Label) ([]model.Node, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT key, props FROM nodes WHERE label = ? ORDER BY key`, string(label))
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "querying nodes", err)
	}
	defer rows.Close()

	var out []model.Node
	for rows.Next() {
		var key, props string
		if err := rows.Scan(&key, &props); err != nil {
			return nil, err
		}
		parsed, err := unmarshalProps(props)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Node{Label: label, Key: key, Props: parsed})
	}
	return out, rows.Err()
}

func (s *SQLite) EdgesFrom(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT src_label, src_key, dst_label, dst_key, type, props FROM edges
		WHERE src_label = ? AND src_key = ?
		ORDER BY type, dst_label, dst_key`, string(label), key)
}

func (s *SQLite) EdgesTo(ctx context.Context, label model.Label, key string) ([]model.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT src_label, src_key, dst_label, dst_key, type, props FROM edges
		WHERE dst_label = ? AND dst_key = ?
		ORDER BY type, src_label, src_key`, string(label), key)
}

func (s *SQLite) EdgesByType(ctx context.Context, t model.EdgeType) ([]model.Edge, error) {
	return s.queryEdges(ctx, `
		SELECT src_label, src_key, dst_label, dst_key, type, props FROM edges
		WHERE type = ?
		ORDER BY src_label, src_key, dst_label, dst_key`, string(t))
}

func (s *SQLite) queryEdges(ctx context.Context, query string, args ...interface{}) ([]model.Edge, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.StoreUnavailable, "querying edges", err)
	}
	defer rows.Close()

	var out []model.Edge
	for rows.Next() {
		var srcLabel, srcKey, dstLabel, dstKey, typ, props string
		if err := rows.Scan(&srcLabel, &srcKey, &dstLabel, &dstKey, &typ, &props); err != nil {
			return nil, err
		}
		parsed, err := unmarshalProps(props)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Edge{
			Type:     model.EdgeType(typ),
			SrcLabel: model.Label(srcLabel), SrcKey: srcKey,
			DstLabel: model.Label(dstLabel), DstKey: dstKey,
			Props: parsed,
		})
	}
	return out, rows.Err()
}

func (s *SQLite) Stats(ctx context.Context) (store.Stats, error) {
	stats := store.Stats{
		Nodes: make(map[model.Label]int),
		Edges: make(map[model.EdgeType]int),
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT label, count(*) FROM nodes GROUP BY label`)
	if err != nil {
		return stats, errors.Wrap(errors.StoreUnavailable, "counting nodes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return stats, err
		}
		stats.Nodes[model.Label(label)] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	edgeRows, err := s.conn.QueryContext(ctx, `SELECT type, count(*) FROM edges GROUP BY type`)
	if err != nil {
		return stats, errors.Wrap(errors.StoreUnavailable, "counting edges", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var typ string
		var n int
		if err := edgeRows.Scan(&typ, &n); err != nil {
			return stats, err
		}
		stats.Edges[model.EdgeType(typ)] = n
	}
	return stats, edgeRows.Err()
}

func (s *SQLite) Close(ctx context.Context) error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.dbPath
}

func marshalProps(props map[string]interface{}) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encoding props: %w", err)
	}
	return string(raw), nil
}

func unmarshalProps(raw string) (map[string]interface{}, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var props map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("decoding props: %w", err)
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

func mergeProps(existing string, incoming map[string]interface{}) (string, error) {
	current, err := unmarshalProps(existing)
	if err != nil {
		return "", err
	}
	if current == nil {
		current = make(map[string]interface{})
	}
	for k, v := range incoming {
		current[k] = v
	}
	return marshalProps(current)
}
