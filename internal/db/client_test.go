package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsphere-labs/dsptool/internal/testutil"
)

func newTestClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewClient(db, testutil.NewTestLogger(t)), mock
}

func TestSpaces(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT DISTINCT SPACE_ID FROM SPACE_SCHEMAS ORDER BY SPACE_ID`).
		WillReturnRows(sqlmock.NewRows([]string{"SPACE_ID"}).
			AddRow("FINANCE").
			AddRow("SALES"))

	spaces, err := client.Spaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"FINANCE", "SALES"}, spaces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCSNDefinitionsForSpace(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT ARTIFACT_NAME, ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? ORDER BY ARTIFACT_NAME`).
		WithArgs("SALES$TEC").
		WillReturnRows(sqlmock.NewRows([]string{"ARTIFACT_NAME", "ARTIFACT"}).
			AddRow("SALES_ORDERS", `{"definitions":{}}`))

	artifacts, err := client.CSNDefinitions(context.Background(), "SALES")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "SALES_ORDERS", artifacts[0].Name)
	assert.Equal(t, "SALES$TEC", artifacts[0].SchemaName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObjectCSN(t *testing.T) {
	body := `{
		"definitions": {
			"SALES_ORDERS": {
				"kind": "entity",
				"@EndUserText.label": "Sales Orders",
				"elements": {
					"ORDER_ID": {"type": "cds.String", "length": 10, "key": true},
					"AMOUNT": {"type": "cds.Decimal"}
				}
			}
		}
	}`

	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? AND ARTIFACT_NAME = ?`).
		WithArgs("SALES$TEC", "SALES_ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{"ARTIFACT"}).AddRow(body))

	def, ok, err := client.ObjectCSN(context.Background(), "SALES", "SALES_ORDERS")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SALES_ORDERS", def.ObjectName)
	assert.Equal(t, "Sales Orders", def.Label)
	assert.Len(t, def.Elements, 2)
	assert.Equal(t, []string{"ORDER_ID"}, def.KeyFields())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObjectCSNNotDeployed(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? AND ARTIFACT_NAME = ?`).
		WithArgs("SALES$TEC", "MISSING").
		WillReturnRows(sqlmock.NewRows([]string{"ARTIFACT"}))

	_, ok, err := client.ObjectCSN(context.Background(), "SALES", "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectCSNMissingDefinition(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT ARTIFACT FROM "$DEPLOY_ARTIFACTS$" WHERE SCHEMA_NAME = ? AND ARTIFACT_NAME = ?`).
		WithArgs("SALES$TEC", "ORPHAN").
		WillReturnRows(sqlmock.NewRows([]string{"ARTIFACT"}).AddRow(`{"definitions":{"OTHER":{}}}`))

	_, ok, err := client.ObjectCSN(context.Background(), "SALES", "ORPHAN")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectDependencies(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT BASE_SCHEMA_NAME, BASE_OBJECT_NAME, DEPENDENT_SCHEMA_NAME, DEPENDENT_OBJECT_NAME, DEPENDENCY_TYPE
		 FROM OBJECT_DEPENDENCIES WHERE BASE_SCHEMA_NAME = ? AND BASE_OBJECT_NAME = ?`).
		WithArgs("SALES$TEC", "SALES_ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{
			"BASE_SCHEMA_NAME", "BASE_OBJECT_NAME", "DEPENDENT_SCHEMA_NAME", "DEPENDENT_OBJECT_NAME", "DEPENDENCY_TYPE",
		}).AddRow("SALES$TEC", "SALES_ORDERS", "SALES$TEC", "V_SALES", "1"))

	deps, err := client.ObjectDependencies(context.Background(), "SALES", "SALES_ORDERS")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "V_SALES", deps[0].DependentObject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindColumnUsage(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT SCHEMA_NAME, TABLE_NAME, COLUMN_NAME, DATA_TYPE_NAME, LENGTH
			 FROM M_CS_COLUMNS WHERE COLUMN_NAME = ? AND SCHEMA_NAME = ? ORDER BY TABLE_NAME`).
		WithArgs("CUSTOMER_ID", "SALES$TEC").
		WillReturnRows(sqlmock.NewRows([]string{
			"SCHEMA_NAME", "TABLE_NAME", "COLUMN_NAME", "DATA_TYPE_NAME", "LENGTH",
		}).
			AddRow("SALES$TEC", "SALES_ORDERS", "CUSTOMER_ID", "NVARCHAR", 10).
			AddRow("SALES$TEC", "V_SALES", "CUSTOMER_ID", "NVARCHAR", 10))

	usages, err := client.FindColumnUsage(context.Background(), "CUSTOMER_ID", "SALES")
	require.NoError(t, err)
	require.Len(t, usages, 2)
	assert.Equal(t, "SALES_ORDERS", usages[0].Table)
	assert.Equal(t, "NVARCHAR", usages[0].DataType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableColumns(t *testing.T) {
	client, mock := newTestClient(t)

	mock.ExpectQuery(`SELECT COLUMN_NAME, POSITION, DATA_TYPE_NAME, LENGTH, SCALE, IS_NULLABLE
		 FROM M_CS_COLUMNS WHERE SCHEMA_NAME = ? AND TABLE_NAME = ? ORDER BY POSITION`).
		WithArgs("SALES$TEC", "SALES_ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{
			"COLUMN_NAME", "POSITION", "DATA_TYPE_NAME", "LENGTH", "SCALE", "IS_NULLABLE",
		}).
			AddRow("ORDER_ID", 1, "NVARCHAR", 10, 0, "FALSE").
			AddRow("AMOUNT", 2, "DECIMAL", 15, 2, "TRUE"))

	columns, err := client.TableColumns(context.Background(), "SALES", "SALES_ORDERS")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "ORDER_ID", columns[0].Name)
	assert.False(t, columns[0].Nullable)
	assert.True(t, columns[1].Nullable)
	assert.Equal(t, 2, columns[1].Scale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()

	client := NewClient(db, testutil.NewTestLogger(t))
	assert.NoError(t, client.TestConnection(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
