package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/hmctech/ordering/pkg/models"
)

// One table per entity, each a key-value mapping of record id to a JSONB
// document. Mirrors the point-key-addressed table contract: put, get, scan,
// field-level update, delete.
const (
	ordersTable    = "orders"
	devicesTable   = "devices"
	operatorsTable = "operators"
	reportsTable   = "reports"
)

var tables = []string{ordersTable, devicesTable, operatorsTable, reportsTable}

type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

func New(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CreateTables creates the entity tables if they don't exist.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, table := range tables {
		query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			doc JSONB NOT NULL
		)`, table)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// put writes the full document, replacing any existing record with the same id.
func (s *Store) put(ctx context.Context, table, id string, record any) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", table, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc
	`, table)
	if _, err := s.db.ExecContext(ctx, query, id, doc); err != nil {
		return fmt.Errorf("failed to put %s record: %w", table, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, table, id string, out any) error {
	var doc []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&doc); err != nil {
		return err
	}
	return json.Unmarshal(doc, out)
}

func (s *Store) scan(ctx context.Context, table string) ([]json.RawMessage, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(doc))
	}
	return docs, rows.Err()
}

// updateFields merges the named fields into the stored document in a single
// statement and returns the document before and after the merge. The CTE
// snapshot is what makes the old image consistent with the applied update.
func (s *Store) updateFields(ctx context.Context, table, id string, fields map[string]any) (oldDoc, newDoc []byte, err error) {
	patch, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal %s field update: %w", table, err)
	}

	query := fmt.Sprintf(`
		WITH prev AS (
			SELECT doc FROM %s WHERE id = $1 FOR UPDATE
		)
		UPDATE %s SET doc = %s.doc || $2::jsonb
		FROM prev
		WHERE %s.id = $1
		RETURNING prev.doc, %s.doc
	`, table, table, table, table, table)

	if err := s.db.QueryRowContext(ctx, query, id, patch).Scan(&oldDoc, &newDoc); err != nil {
		return nil, nil, err
	}
	return oldDoc, newDoc, nil
}

// delete removes the record and returns its last document, so callers can emit
// a REMOVE event carrying the old image.
func (s *Store) delete(ctx context.Context, table, id string) ([]byte, error) {
	var doc []byte
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING doc`, table)
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Orders

func (s *Store) PutOrder(ctx context.Context, order *models.Order) error {
	return s.put(ctx, ordersTable, order.ID, order)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.get(ctx, ordersTable, id, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	docs, err := s.scan(ctx, ordersTable)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var order models.Order
		if err := json.Unmarshal(doc, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *Store) UpdateOrderFields(ctx context.Context, id string, fields map[string]any) (*models.Order, *models.Order, error) {
	oldDoc, newDoc, err := s.updateFields(ctx, ordersTable, id, fields)
	if err != nil {
		return nil, nil, err
	}

	var old, updated models.Order
	if err := json.Unmarshal(oldDoc, &old); err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(newDoc, &updated); err != nil {
		return nil, nil, err
	}
	return &old, &updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) (*models.Order, error) {
	doc, err := s.delete(ctx, ordersTable, id)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := json.Unmarshal(doc, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Devices

func (s *Store) PutDevice(ctx context.Context, device *models.Device) error {
	return s.put(ctx, devicesTable, device.ID, device)
}

func (s *Store) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	if err := s.get(ctx, devicesTable, id, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *Store) ListDevices(ctx context.Context) ([]models.Device, error) {
	docs, err := s.scan(ctx, devicesTable)
	if err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(docs))
	for _, doc := range docs {
		var device models.Device
		if err := json.Unmarshal(doc, &device); err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	_, err := s.delete(ctx, devicesTable, id)
	return err
}

// Operators

func (s *Store) PutOperator(ctx context.Context, operator *models.Operator) error {
	return s.put(ctx, operatorsTable, operator.ID, operator)
}

func (s *Store) GetOperator(ctx context.Context, id string) (*models.Operator, error) {
	var operator models.Operator
	if err := s.get(ctx, operatorsTable, id, &operator); err != nil {
		return nil, err
	}
	return &operator, nil
}

func (s *Store) ListOperators(ctx context.Context) ([]models.Operator, error) {
	docs, err := s.scan(ctx, operatorsTable)
	if err != nil {
		return nil, err
	}

	operators := make([]models.Operator, 0, len(docs))
	for _, doc := range docs {
		var operator models.Operator
		if err := json.Unmarshal(doc, &operator); err != nil {
			return nil, err
		}
		operators = append(operators, operator)
	}
	return operators, nil
}

// Reports

func (s *Store) PutReport(ctx context.Context, report *models.Report) error {
	return s.put(ctx, reportsTable, report.ID, report)
}

func (s *Store) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.get(ctx, reportsTable, id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Store) ListReports(ctx context.Context) ([]models.Report, error) {
	docs, err := s.scan(ctx, reportsTable)
	if err != nil {
		return nil, err
	}

	reports := make([]models.Report, 0, len(docs))
	for _, doc := range docs {
		var report models.Report
		if err := json.Unmarshal(doc, &report); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
