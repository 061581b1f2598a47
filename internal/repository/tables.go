package repository

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	sqlschema "entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/debitsheet-import/db/ent/schema"
)

var (
	// Tables holds the migrator view of every schema in db/ent/schema.
	Tables = mustTables(
		schema.Order{},
		schema.OrderItem{},
		schema.CatalogReference{},
		schema.ExtractionLog{},
	)

	OrdersTable            = tableNamed("orders")
	OrderItemsTable        = tableNamed("order_items")
	CatalogReferencesTable = tableNamed("catalog_references")
	ExtractionLogsTable    = tableNamed("extraction_logs")

	tableOrders      = OrdersTable.Name
	tableOrderItems  = OrderItemsTable.Name
	tableCatalog     = CatalogReferencesTable.Name
	tableExtractions = ExtractionLogsTable.Name
)

// mustTables converts ent schemas into migrator tables the same way entc
// lays them out: fields in declaration order, "id" as primary key, one index
// per ent index and a foreign key per inverse edge bound to a field.
// It panics on a schema that cannot be resolved.
func mustTables(schemas ...ent.Interface) []*sqlschema.Table {
	byType := make(map[string]ent.Interface, len(schemas))
	tables := make(map[string]*sqlschema.Table, len(schemas))
	out := make([]*sqlschema.Table, 0, len(schemas))
	for _, s := range schemas {
		t, err := tableOf(s)
		if err != nil {
			panic(err)
		}
		name := reflect.TypeOf(s).Name()
		byType[name] = s
		tables[name] = t
		out = append(out, t)
	}
	for _, s := range schemas {
		t := tables[reflect.TypeOf(s).Name()]
		for _, e := range s.Edges() {
			d := e.Descriptor()
			if !d.Inverse || d.Field == "" {
				continue
			}
			ref, ok := tables[d.Type]
			if !ok {
				panic(fmt.Sprintf("schema %s: edge %q references unknown type %s", t.Name, d.Name, d.Type))
			}
			col, ok := t.Column(d.Field)
			if !ok {
				panic(fmt.Sprintf("schema %s: edge field %q is not declared", t.Name, d.Field))
			}
			t.AddForeignKey(&sqlschema.ForeignKey{
				Symbol:     fmt.Sprintf("%s_%s_%s", t.Name, ref.Name, d.RefName),
				Columns:    []*sqlschema.Column{col},
				RefTable:   ref,
				RefColumns: ref.PrimaryKey,
				OnDelete:   onDelete(byType[d.Type], d.RefName),
			})
		}
	}
	return out
}

func tableOf(s ent.Interface) (*sqlschema.Table, error) {
	name := tableName(s)
	if name == "" {
		return nil, fmt.Errorf("schema %T has no table annotation", s)
	}
	t := sqlschema.NewTable(name)
	for _, f := range s.Fields() {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("schema %s: field %q: %w", name, d.Name, d.Err)
		}
		col := &sqlschema.Column{
			Name:     columnName(d),
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
		}
		if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
			col.Default = d.Default
		}
		if col.Name == "id" {
			t.AddPrimary(col)
		} else {
			t.AddColumn(col)
		}
	}
	if len(t.PrimaryKey) == 0 {
		return nil, fmt.Errorf("schema %s has no id field", name)
	}
	for _, idx := range s.Indexes() {
		d := idx.Descriptor()
		for _, f := range d.Fields {
			if !t.HasColumn(f) {
				return nil, fmt.Errorf("schema %s: index on unknown field %q", name, f)
			}
		}
		idxName := d.StorageKey
		if idxName == "" {
			idxName = name + "_" + strings.Join(d.Fields, "_")
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}

func tableName(s ent.Interface) string {
	for _, a := range s.Annotations() {
		switch ann := a.(type) {
		case entsql.Annotation:
			return ann.Table
		case *entsql.Annotation:
			return ann.Table
		}
	}
	return ""
}

func columnName(d *field.Descriptor) string {
	if d.StorageKey != "" {
		return d.StorageKey
	}
	return d.Name
}

// onDelete reads the delete action declared on the owner's edge named edgeName.
func onDelete(owner ent.Interface, edgeName string) sqlschema.ReferenceOption {
	if owner == nil {
		return sqlschema.NoAction
	}
	for _, e := range owner.Edges() {
		d := e.Descriptor()
		if d.Name != edgeName {
			continue
		}
		for _, a := range d.Annotations {
			switch ann := a.(type) {
			case *entsql.Annotation:
				if ann.OnDelete != "" {
					return sqlschema.ReferenceOption(ann.OnDelete)
				}
			case entsql.Annotation:
				if ann.OnDelete != "" {
					return sqlschema.ReferenceOption(ann.OnDelete)
				}
			}
		}
	}
	return sqlschema.NoAction
}

func tableNamed(name string) *sqlschema.Table {
	for _, t := range Tables {
		if t.Name == name {
			return t
		}
	}
	panic(fmt.Sprintf("no table %q in db/ent/schema", name))
}

// columnNames lists the table columns in declaration order.
func columnNames(t *sqlschema.Table) []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// record is one scanned row keyed by column name. NULL columns are absent.
type record map[string]any

// scanTargets returns a ScanValues func for t that picks a nullable
// destination per column type.
func scanTargets(t *sqlschema.Table) func(columns []string) ([]any, error) {
	return func(columns []string) ([]any, error) {
		values := make([]any, len(columns))
		for i, name := range columns {
			c, ok := t.Column(name)
			if !ok {
				return nil, fmt.Errorf("unexpected column %q for table %s", name, t.Name)
			}
			switch c.Type {
			case field.TypeUUID:
				values[i] = new(uuid.NullUUID)
			case field.TypeString:
				values[i] = new(sql.NullString)
			case field.TypeFloat64, field.TypeFloat32:
				values[i] = new(sql.NullFloat64)
			case field.TypeInt, field.TypeInt64, field.TypeInt32:
				values[i] = new(sql.NullInt64)
			case field.TypeBool:
				values[i] = new(sql.NullBool)
			case field.TypeTime:
				values[i] = new(sql.NullTime)
			default:
				return nil, fmt.Errorf("unsupported type %s for column %s.%s", c.Type, t.Name, name)
			}
		}
		return values, nil
	}
}

// toRecord unwraps the destinations filled by scanTargets.
func toRecord(columns []string, values []any) (record, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("mismatch number of scan values: %d != %d", len(values), len(columns))
	}
	rec := make(record, len(columns))
	for i, name := range columns {
		switch v := values[i].(type) {
		case *uuid.NullUUID:
			if v.Valid {
				rec[name] = v.UUID
			}
		case *sql.NullString:
			if v.Valid {
				rec[name] = v.String
			}
		case *sql.NullFloat64:
			if v.Valid {
				rec[name] = v.Float64
			}
		case *sql.NullInt64:
			if v.Valid {
				rec[name] = v.Int64
			}
		case *sql.NullBool:
			if v.Valid {
				rec[name] = v.Bool
			}
		case *sql.NullTime:
			if v.Valid {
				rec[name] = v.Time
			}
		default:
			return nil, fmt.Errorf("unexpected type %T for column %s", values[i], name)
		}
	}
	return rec, nil
}

func (r record) str(col string) string {
	s, _ := r[col].(string)
	return s
}

func (r record) strPtr(col string) *string {
	if s, ok := r[col].(string); ok {
		return &s
	}
	return nil
}

func (r record) float(col string) float64 {
	f, _ := r[col].(float64)
	return f
}

func (r record) floatPtr(col string) *float64 {
	if f, ok := r[col].(float64); ok {
		return &f
	}
	return nil
}

func (r record) integer(col string) int {
	n, _ := r[col].(int64)
	return int(n)
}

func (r record) int64(col string) int64 {
	n, _ := r[col].(int64)
	return n
}

func (r record) bool(col string) bool {
	b, _ := r[col].(bool)
	return b
}

func (r record) timeAt(col string) time.Time {
	t, _ := r[col].(time.Time)
	return t
}

func (r record) uid(col string) uuid.UUID {
	id, _ := r[col].(uuid.UUID)
	return id
}

func (r record) uidPtr(col string) *uuid.UUID {
	if id, ok := r[col].(uuid.UUID); ok {
		return &id
	}
	return nil
}
