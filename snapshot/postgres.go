package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

var ErrNoSnapshot = errors.New("no snapshot stored")

// PGStore appends every saved document to conference_snapshots and loads the
// newest row for its name.
type PGStore struct {
	db   *sql.DB
	name string
}

// OpenPG connects to Postgres and applies the schema.
func OpenPG(ctx context.Context, conn, name string) (*PGStore, error) {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PGStore{db: db, name: name}, nil
}

func (p *PGStore) Close() error {
	return p.db.Close()
}

func (p *PGStore) Save(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		"INSERT INTO conference_snapshots (name, run_id, document) VALUES ($1, $2, $3)",
		p.name, doc.RunID, data)
	return err
}

func (p *PGStore) Load(ctx context.Context) (*Document, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT document FROM conference_snapshots WHERE name = $1 ORDER BY id DESC LIMIT 1",
		p.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNoSnapshot)
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", p.name, err)
	}
	return &doc, nil
}
