//go:build integration

package postgres

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/testhelpers"
)

// discoverTestSchema runs discovery against the migrated engine database.
func discoverTestSchema(t *testing.T) *datasource.SchemaDescription {
	t.Helper()

	// Migrations must run first so the HR tables exist.
	testhelpers.GetEngineDB(t)

	ctx := context.Background()
	discoverer, err := NewSchemaDiscoverer(ctx, testConfig(t), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewSchemaDiscoverer failed: %v", err)
	}
	t.Cleanup(func() { discoverer.Close() })

	schema, err := discoverer.DiscoverSchema(ctx)
	if err != nil {
		t.Fatalf("DiscoverSchema failed: %v", err)
	}
	return schema
}

func findTable(schema *datasource.SchemaDescription, name string) *datasource.TableSchema {
	for i := range schema.Tables {
		if schema.Tables[i].Name == name {
			return &schema.Tables[i]
		}
	}
	return nil
}

func findForeignKey(table *datasource.TableSchema, firstColumn string) *datasource.ForeignKeyEdge {
	for i := range table.ForeignKeys {
		fk := &table.ForeignKeys[i]
		if len(fk.Columns) > 0 && fk.Columns[0] == firstColumn {
			return fk
		}
	}
	return nil
}

func TestSchemaDiscoverer_ListsHRTables(t *testing.T) {
	schema := discoverTestSchema(t)

	expected := []string{
		"ai_query_logs",
		"departments",
		"employee_projects",
		"employee_skills",
		"employees",
		"goals",
		"hr_embeddings",
		"projects",
		"skills",
		"sync_logs",
	}
	for _, name := range expected {
		if findTable(schema, name) == nil {
			t.Errorf("expected table %q in discovered schema", name)
		}
	}

	for i := 1; i < len(schema.Tables); i++ {
		if schema.Tables[i-1].Name >= schema.Tables[i].Name {
			t.Errorf("tables not sorted by name: %q before %q",
				schema.Tables[i-1].Name, schema.Tables[i].Name)
		}
	}
}

func TestSchemaDiscoverer_ColumnsInOrdinalOrder(t *testing.T) {
	schema := discoverTestSchema(t)

	employees := findTable(schema, "employees")
	if employees == nil {
		t.Fatal("employees table not discovered")
	}

	want := []string{
		"id", "employee_id", "full_name", "email", "department_id",
		"designation", "salary", "manager_employee_id", "blocked", "active",
		"last_login", "created_at", "updated_at",
	}
	if !reflect.DeepEqual(employees.Columns, want) {
		t.Errorf("unexpected employees columns:\n got %v\nwant %v", employees.Columns, want)
	}
}

func TestSchemaDiscoverer_ForeignKeys(t *testing.T) {
	schema := discoverTestSchema(t)

	goals := findTable(schema, "goals")
	if goals == nil {
		t.Fatal("goals table not discovered")
	}

	for _, column := range []string{"assigned_to_employee_id", "assigned_by_employee_id"} {
		fk := findForeignKey(goals, column)
		if fk == nil {
			t.Fatalf("expected foreign key on goals.%s", column)
		}
		if fk.ReferredTable != "employees" {
			t.Errorf("goals.%s: expected referred table employees, got %q", column, fk.ReferredTable)
		}
		if !reflect.DeepEqual(fk.ReferredColumns, []string{"employee_id"}) {
			t.Errorf("goals.%s: expected referred columns [employee_id], got %v", column, fk.ReferredColumns)
		}
	}

	memberships := findTable(schema, "employee_projects")
	if memberships == nil {
		t.Fatal("employee_projects table not discovered")
	}
	if len(memberships.ForeignKeys) != 2 {
		t.Fatalf("expected 2 foreign keys on employee_projects, got %d", len(memberships.ForeignKeys))
	}
	if fk := findForeignKey(memberships, "project_id"); fk == nil || fk.ReferredTable != "projects" {
		t.Errorf("expected employee_projects.project_id -> projects, got %+v", fk)
	}
}

func TestSchemaDiscoverer_CompositeForeignKeyPairing(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	// A two-column key checks that constrained and referred columns stay
	// index-aligned instead of collapsing into an unordered set.
	_, err := testDB.Pool.Exec(ctx, `
		CREATE TABLE review_cycles (
			cycle_year INT NOT NULL,
			cycle_quarter INT NOT NULL,
			PRIMARY KEY (cycle_year, cycle_quarter)
		)`)
	if err != nil {
		t.Fatalf("failed to create review_cycles: %v", err)
	}
	_, err = testDB.Pool.Exec(ctx, `
		CREATE TABLE review_entries (
			employee_id VARCHAR(50) NOT NULL,
			cycle_year INT NOT NULL,
			cycle_quarter INT NOT NULL,
			FOREIGN KEY (cycle_year, cycle_quarter)
				REFERENCES review_cycles (cycle_year, cycle_quarter)
		)`)
	if err != nil {
		t.Fatalf("failed to create review_entries: %v", err)
	}
	t.Cleanup(func() {
		testDB.Pool.Exec(ctx, "DROP TABLE IF EXISTS review_entries")
		testDB.Pool.Exec(ctx, "DROP TABLE IF EXISTS review_cycles")
	})

	schema := discoverTestSchema(t)

	entries := findTable(schema, "review_entries")
	if entries == nil {
		t.Fatal("review_entries table not discovered")
	}
	if len(entries.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key on review_entries, got %d", len(entries.ForeignKeys))
	}

	fk := entries.ForeignKeys[0]
	if !reflect.DeepEqual(fk.Columns, []string{"cycle_year", "cycle_quarter"}) {
		t.Errorf("unexpected constrained columns: %v", fk.Columns)
	}
	if fk.ReferredTable != "review_cycles" {
		t.Errorf("expected referred table review_cycles, got %q", fk.ReferredTable)
	}
	if !reflect.DeepEqual(fk.ReferredColumns, []string{"cycle_year", "cycle_quarter"}) {
		t.Errorf("unexpected referred columns: %v", fk.ReferredColumns)
	}
}
