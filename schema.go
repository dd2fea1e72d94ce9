package identity

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ModelDef describes one entity type for schema synchronization: the bun
// model plus the relation list the table declares.
type ModelDef struct {
	Model any
	// ForeignKeys are raw constraint clauses appended at table creation,
	// e.g. `("account_id") REFERENCES "identity_accounts" ("id") ON DELETE CASCADE`.
	ForeignKeys []string
}

// SchemaOption customizes schema synchronization.
type SchemaOption func(*schemaSync)

// WithSchemaLogger replaces the synchronizer's default logger.
func WithSchemaLogger(l Logger) SchemaOption {
	return func(s *schemaSync) {
		if l != nil {
			s.logger = l
		}
	}
}

type schemaSync struct {
	db     *bun.DB
	logger Logger
}

// SyncModels reconciles each entity description against the live database:
// a missing table is created, and columns present in the model but absent
// from the table are added. The reconciliation is additive only; it never
// drops or narrows columns. Running it twice is a no-op.
//
// Failures are schema errors: fatal to startup, not retried.
func SyncModels(ctx context.Context, db *bun.DB, defs []ModelDef, opts ...SchemaOption) error {
	s := &schemaSync{db: db, logger: defLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, def := range defs {
		if err := s.syncModel(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// CreateAccountSchema ensures the schema for the built-in string-keyed
// account and role entities. Run once at process startup.
func CreateAccountSchema(ctx context.Context, db *bun.DB, opts ...SchemaOption) error {
	return CreateAccountSchemaFor[string, *Account[string]](ctx, db, opts...)
}

// CreateAccountSchemaFor ensures the schema for an arbitrary key scheme and
// account type, so callers with custom account fields can extend the schema
// without forking the store. The claim, login, role, and link tables carry
// cascading foreign keys to the account and role tables.
func CreateAccountSchemaFor[K Key, T AccountModel[K]](ctx context.Context, db *bun.DB, opts ...SchemaOption) error {
	var account T

	accountTable := db.Table(reflect.TypeOf(account).Elem()).Name
	roleTable := db.Table(reflect.TypeOf(Role[K]{})).Name

	accountFK := fmt.Sprintf(`("account_id") REFERENCES %q ("id") ON DELETE CASCADE`, accountTable)
	roleFK := fmt.Sprintf(`("role_id") REFERENCES %q ("id") ON DELETE CASCADE`, roleTable)

	return SyncModels(ctx, db, []ModelDef{
		{Model: account},
		{Model: (*Role[K])(nil)},
		{Model: (*AccountClaim[K])(nil), ForeignKeys: []string{accountFK}},
		{Model: (*AccountLogin[K])(nil), ForeignKeys: []string{accountFK}},
		{Model: (*AccountRole[K])(nil), ForeignKeys: []string{accountFK, roleFK}},
	}, opts...)
}

func (s *schemaSync) syncModel(ctx context.Context, def ModelDef) error {
	typ := reflect.TypeOf(def.Model)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return wrapSchema(fmt.Errorf("no table mapping for %T", def.Model), "resolve table")
	}
	table := s.db.Table(typ)

	q := s.db.NewCreateTable().Model(def.Model).IfNotExists()
	for _, fk := range def.ForeignKeys {
		q = q.ForeignKey(fk)
	}
	if _, err := q.Exec(ctx); err != nil {
		return wrapSchema(err, "create table "+table.Name)
	}

	live, err := s.liveColumns(ctx, table.Name)
	if err != nil {
		return wrapSchema(err, "enumerate columns of "+table.Name)
	}

	for _, field := range table.Fields {
		if _, ok := live[strings.ToLower(field.Name)]; ok {
			continue
		}
		s.logger.Info("adding column %s.%s", table.Name, field.Name)
		_, err := s.db.NewAddColumn().
			Model(def.Model).
			ColumnExpr("? ?", bun.Ident(field.Name), bun.Safe(fieldSQLType(field))).
			Exec(ctx)
		if err != nil {
			return wrapSchema(err, fmt.Sprintf("add column %s.%s", table.Name, field.Name))
		}
	}
	return nil
}

func (s *schemaSync) liveColumns(ctx context.Context, tableName string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM ? LIMIT 0", bun.Ident(tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	columns := make(map[string]struct{}, len(names))
	for _, name := range names {
		columns[strings.ToLower(name)] = struct{}{}
	}
	return columns, nil
}

func fieldSQLType(field *schema.Field) string {
	if field.CreateTableSQLType != "" {
		return field.CreateTableSQLType
	}
	return field.DiscoveredSQLType
}
