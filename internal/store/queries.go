package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
)

func (s *sqliteStore) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	st := tx.StmtContext(ctx, s.stmtUpsertProduct)
	now := ToMillis(time.Now())
	for _, p := range products {
		if _, err := st.ExecContext(ctx, p.ID, p.Name, p.Category, p.Stock, p.ReorderLevel, p.DemandForecast,
			p.BasePrice, p.CurrentPrice, p.DemandLevel, now); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, category, stock, reorder_level, demand_forecast, base_price, current_price, demand_level FROM products ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Stock, &p.ReorderLevel, &p.DemandForecast,
			&p.BasePrice, &p.CurrentPrice, &p.DemandLevel); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) InsertAgentLog(ctx context.Context, l models.AgentLog) error {
	_, err := s.stmtInsertLog.ExecContext(ctx, l.ID, ToMillis(l.Timestamp), l.Agent, l.Action, l.Details, l.Status)
	return err
}

func (s *sqliteStore) ListAgentLogs(ctx context.Context, limit int) ([]models.AgentLog, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, created_at, agent, action, details, status FROM agent_logs ORDER BY created_at DESC, seq DESC LIMIT ?`,
		ClampLimit(limit, models.DefaultLogCapacity))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.AgentLog
	for rows.Next() {
		var l models.AgentLog
		var ts int64
		if err := rows.Scan(&l.ID, &ts, &l.Agent, &l.Action, &l.Details, &l.Status); err != nil {
			return nil, err
		}
		l.Timestamp = FromMillis(ts)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertQuery(ctx context.Context, q models.CustomerQuery) error {
	_, err := s.stmtUpsertQuery.ExecContext(ctx, q.ID, ToMillis(q.Timestamp), q.CustomerName, q.QueryType, q.Query, q.Response, q.Status)
	return err
}

func (s *sqliteStore) ListQueries(ctx context.Context, limit int) ([]models.CustomerQuery, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, created_at, customer_name, query_type, query, response, status FROM customer_queries ORDER BY created_at DESC, seq DESC LIMIT ?`,
		ClampLimit(limit, models.DefaultQueryListLimit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.CustomerQuery
	for rows.Next() {
		var q models.CustomerQuery
		var ts int64
		if err := rows.Scan(&q.ID, &ts, &q.CustomerName, &q.QueryType, &q.Query, &q.Response, &q.Status); err != nil {
			return nil, err
		}
		q.Timestamp = FromMillis(ts)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveBackup(ctx context.Context, b models.Backup, snap models.Snapshot) error {
	raw, err := CompressSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO backups(id, created_at, product_count, query_count, log_count, snapshot, encoding) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		b.ID, ToMillis(b.CreatedAt), b.ProductCount, b.QueryCount, b.LogCount, raw, EncodingBrotli)
	return err
}

func (s *sqliteStore) ListBackups(ctx context.Context, limit int) ([]models.Backup, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, created_at, product_count, query_count, log_count FROM backups ORDER BY created_at DESC LIMIT ?`,
		ClampLimit(limit, models.DefaultBackupListLimit))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Backup
	for rows.Next() {
		var b models.Backup
		var ts int64
		if err := rows.Scan(&b.ID, &ts, &b.ProductCount, &b.QueryCount, &b.LogCount); err != nil {
			return nil, err
		}
		b.CreatedAt = FromMillis(ts)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqliteStore) GetBackup(ctx context.Context, id string) (models.Backup, models.Snapshot, error) {
	var b models.Backup
	var ts int64
	var raw []byte
	var encoding string
	err := s.DB.QueryRowContext(ctx, `SELECT id, created_at, product_count, query_count, log_count, snapshot, encoding FROM backups WHERE id = ?`, id).
		Scan(&b.ID, &ts, &b.ProductCount, &b.QueryCount, &b.LogCount, &raw, &encoding)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Backup{}, models.Snapshot{}, fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Backup{}, models.Snapshot{}, err
	}
	b.CreatedAt = FromMillis(ts)
	snap, err := DecodeStoredSnapshot(encoding, raw)
	return b, snap, err
}
