// Package db queries Datasphere metadata directly from the underlying HANA
// database: space schemas, deployed CSN artifacts, object dependencies and
// column catalogs.
//
// The REST API in internal/api covers the repository view of the tenant;
// this client covers what only SQL exposes, such as deployed artifacts and
// the column store catalog.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP/go-hdb/driver"

	"github.com/dsphere-labs/dsptool/internal/csn"
)

// Config holds the HANA connection settings.
type Config struct {
	Address  string
	Port     int
	User     string
	Password string
}

// DSN renders the go-hdb connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("hdb://%s:%s@%s:%d?TLSServerName=%s", c.User, c.Password, c.Address, c.Port, c.Address)
}

// Client runs metadata queries against the tenant database.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the database described by cfg.
func Open(cfg Config, logger *slog.Logger) (*Client, error) {
	connector, err := driver.NewDSNConnector(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid HANA DSN: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewClient(db, logger), nil
}

// NewClient wraps an existing connection pool. Tests inject a mock here.
func NewClient(db *sql.DB, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{db: db, logger: logger}
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// TestConnection verifies the database is reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// tecSchema is the technical schema of a space, where deployed artifacts
// live.
func tecSchema(spaceID string) string {
	return spaceID + "$TEC"
}

// Spaces lists all space IDs known to the database.
func (c *Client) Spaces(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT DISTINCT SPACE_ID FROM SPACE_SCHEMAS ORDER BY SPACE_ID`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spaces: %w", err)
	}
	defer rows.Close()

	var spaces []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		spaces = append(spaces, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched spaces from database", "count", len(spaces))
	return spaces, nil
}

// Artifact is one deployed CSN artifact.
type Artifact struct {
	Name       string
	SchemaName string
	Body       string
}

// CSNDefinitions lists deployed artifacts, optionally limited to one space.
func (c *Client) CSNDefinitions(ctx context.Context, spaceID string) ([]Artifact, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if spaceID != "" {
		rows, err = c.db.QueryContext(ctx,
			`SELECT ARTIFACT_NAME, ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? ORDER BY ARTIFACT_NAME`,
			tecSchema(spaceID))
	} else {
		rows, err = c.db.QueryContext(ctx,
			`SELECT ARTIFACT_NAME, ARTIFACT, SCHEMA_NAME FROM "$DEPLOY_ARTIFACTS$" ORDER BY SCHEMA_NAME, ARTIFACT_NAME`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CSN definitions: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if spaceID != "" {
			err = rows.Scan(&a.Name, &a.Body)
			a.SchemaName = tecSchema(spaceID)
		} else {
			err = rows.Scan(&a.Name, &a.Body, &a.SchemaName)
		}
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched CSN definitions", "count", len(artifacts))
	return artifacts, nil
}

// ObjectCSN fetches and parses the CSN definition of one object. The second
// return value is false when the object has no deployed artifact or the
// artifact does not define it.
func (c *Client) ObjectCSN(ctx context.Context, spaceID, objectName string) (csn.Definition, bool, error) {
	var body string
	err := c.db.QueryRowContext(ctx,
		`SELECT ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? AND ARTIFACT_NAME = ?`,
		tecSchema(spaceID), objectName).Scan(&body)
	if err == sql.ErrNoRows {
		c.logger.Warn("no CSN artifact found", "space", spaceID, "object", objectName)
		return csn.Definition{}, false, nil
	}
	if err != nil {
		return csn.Definition{}, false, fmt.Errorf("failed to fetch CSN for %s: %w", objectName, err)
	}

	var doc struct {
		Definitions map[string]map[string]any `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return csn.Definition{}, false, fmt.Errorf("failed to parse CSN for %s: %w", objectName, err)
	}

	raw, ok := doc.Definitions[objectName]
	if !ok {
		c.logger.Warn("object missing from CSN definitions", "object", objectName)
		return csn.Definition{}, false, nil
	}

	def := csn.ParseDefinition(objectName, raw)
	c.logger.Info("parsed CSN", "object", objectName, "fields", len(def.Elements))
	return def, true, nil
}

// Dependency is one row of the database-side object dependency catalog.
type Dependency struct {
	BaseSchema      string `json:"baseSchema"`
	BaseObject      string `json:"baseObject"`
	DependentSchema string `json:"dependentSchema"`
	DependentObject string `json:"dependentObject"`
	Type            string `json:"type"`
}

// ObjectDependencies lists catalog dependencies of one object.
func (c *Client) ObjectDependencies(ctx context.Context, spaceID, objectName string) ([]Dependency, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT BASE_SCHEMA_NAME, BASE_OBJECT_NAME, DEPENDENT_SCHEMA_NAME, DEPENDENT_OBJECT_NAME, DEPENDENCY_TYPE
		 FROM OBJECT_DEPENDENCIES WHERE BASE_SCHEMA_NAME = ? AND BASE_OBJECT_NAME = ?`,
		tecSchema(spaceID), objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dependencies: %w", err)
	}
	defer rows.Close()

	var deps []Dependency
	for rows.Next() {
		var d Dependency
		if err := rows.Scan(&d.BaseSchema, &d.BaseObject, &d.DependentSchema, &d.DependentObject, &d.Type); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched object dependencies", "object", objectName, "count", len(deps))
	return deps, nil
}

// ColumnUsage is one hit of a column search across the column store.
type ColumnUsage struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Column   string `json:"column"`
	DataType string `json:"dataType"`
	Length   int    `json:"length"`
}

// FindColumnUsage lists all tables containing the named column, optionally
// limited to one space.
func (c *Client) FindColumnUsage(ctx context.Context, columnName, spaceID string) ([]ColumnUsage, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if spaceID != "" {
		rows, err = c.db.QueryContext(ctx,
			`SELECT SCHEMA_NAME, TABLE_NAME, COLUMN_NAME, DATA_TYPE_NAME, LENGTH
			 FROM M_CS_COLUMNS WHERE COLUMN_NAME = ? AND SCHEMA_NAME = ? ORDER BY TABLE_NAME`,
			columnName, tecSchema(spaceID))
	} else {
		rows, err = c.db.QueryContext(ctx,
			`SELECT SCHEMA_NAME, TABLE_NAME, COLUMN_NAME, DATA_TYPE_NAME, LENGTH
			 FROM M_CS_COLUMNS WHERE COLUMN_NAME = ? ORDER BY SCHEMA_NAME, TABLE_NAME`,
			columnName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find column usage: %w", err)
	}
	defer rows.Close()

	var usages []ColumnUsage
	for rows.Next() {
		var u ColumnUsage
		if err := rows.Scan(&u.Schema, &u.Table, &u.Column, &u.DataType, &u.Length); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("found column usage", "column", columnName, "count", len(usages))
	return usages, nil
}

// Column is one column of a table in the column store catalog.
type Column struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	DataType string `json:"dataType"`
	Length   int    `json:"length"`
	Scale    int    `json:"scale"`
	Nullable bool   `json:"nullable"`
}

// TableColumns lists the columns of one table in position order.
func (c *Client) TableColumns(ctx context.Context, spaceID, tableName string) ([]Column, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT COLUMN_NAME, POSITION, DATA_TYPE_NAME, LENGTH, SCALE, IS_NULLABLE
		 FROM M_CS_COLUMNS WHERE SCHEMA_NAME = ? AND TABLE_NAME = ? ORDER BY POSITION`,
		tecSchema(spaceID), tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			col      Column
			nullable string
		)
		if err := rows.Scan(&col.Name, &col.Position, &col.DataType, &col.Length, &col.Scale, &nullable); err != nil {
			return nil, err
		}
		col.Nullable = nullable == "TRUE"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.logger.Info("fetched table columns", "table", tableName, "count", len(columns))
	return columns, nil
}
