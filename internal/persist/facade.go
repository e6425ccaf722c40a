// Package persist сохраняет экземпляры сущностей в хранилище: ToRow перед
// каждой вставкой и обновлением, FromRow после каждого чтения.
package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"tabula/internal/ddl"
	"tabula/internal/marshal"
	"tabula/internal/meta"
	"tabula/internal/ormerr"
	"tabula/internal/registry"
	"tabula/internal/store"
)

const tracerName = "tabula/persist"

// querier — общее у *sql.DB и *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Facade — вставка, чтение, обновление, удаление и пакетная вставка.
type Facade struct {
	store  *store.Store
	m      *marshal.Marshaler
	reg    *registry.Registry
	tracer trace.Tracer

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option настраивает Facade.
type Option func(*Facade)

// WithTracerProvider задаёт провайдер трассировки (по умолчанию глобальный).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Facade) { f.tracer = tp.Tracer(tracerName) }
}

func New(s *store.Store, m *marshal.Marshaler, opts ...Option) *Facade {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	f := &Facade{
		store:   s,
		m:       m,
		reg:     m.Registry(),
		tracer:  otel.Tracer(tracerName),
		entropy: ulid.Monotonic(src, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) Registry() *registry.Registry { return f.reg }

func (f *Facade) Marshaler() *marshal.Marshaler { return f.m }

func (f *Facade) Dialect() ddl.Dialect { return f.store.Dialect() }

func (f *Facade) newOpID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), f.entropy).String()
}

func (f *Facade) start(ctx context.Context, op, entity string) (context.Context, trace.Span) {
	return f.tracer.Start(ctx, "persist."+op, trace.WithAttributes(
		semconv.DBSystemKey.String(f.store.Dialect().Name()),
		attribute.String("tabula.entity", entity),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateSchema создаёт таблицы в порядке зависимостей; существующие пропускаются.
func (f *Facade) CreateSchema(ctx context.Context) (err error) {
	ctx, span := f.start(ctx, "CreateSchema", "")
	defer func() { finish(span, err) }()

	script, err := ddl.Create(f.reg, f.store.Dialect())
	if err != nil {
		return err
	}
	return f.store.Apply(ctx, script)
}

// Recreate удаляет все таблицы и создаёт их заново. Данные теряются.
func (f *Facade) Recreate(ctx context.Context) (err error) {
	ctx, span := f.start(ctx, "Recreate", "")
	defer func() { finish(span, err) }()

	script, err := ddl.Create(f.reg, f.store.Dialect())
	if err != nil {
		return err
	}
	if err := f.store.Apply(ctx, ddl.Drop(f.reg, f.store.Dialect())); err != nil {
		return err
	}
	log.Printf("schema dropped: %d tables", f.reg.Len())
	return f.store.Apply(ctx, script)
}

// SetForeignKeys включает или выключает проверку внешних ключей.
func (f *Facade) SetForeignKeys(ctx context.Context, enabled bool) error {
	return f.store.SetForeignKeys(ctx, enabled)
}

// Insert сохраняет экземпляр и записывает в него выданный идентификатор.
func (f *Facade) Insert(ctx context.Context, inst meta.Instance) (id int64, err error) {
	ctx, span := f.start(ctx, "Insert", inst.EntityName())
	defer func() { finish(span, err) }()

	id, err = f.insert(ctx, f.store.DB(), inst)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("tabula.id", id))
	return id, nil
}

func (f *Facade) insert(ctx context.Context, q querier, inst meta.Instance) (int64, error) {
	d, err := f.reg.Lookup(inst.EntityName())
	if err != nil {
		return 0, err
	}
	row, err := f.m.ToRow(inst)
	if err != nil {
		return 0, err
	}
	current, err := f.m.Identity(inst)
	if err != nil {
		return 0, err
	}

	dialect := f.store.Dialect()
	query, args := insertSQL(d, row, current, dialect)
	var id int64
	if dialect.Returning() {
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert %s: %w", d.Name, err)
		}
	} else {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", d.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("insert %s: last insert id: %w", d.Name, err)
		}
	}
	if current != meta.NotPersistedID {
		if sync := dialect.SyncIdentity(d.Table); sync != "" {
			if _, err := q.ExecContext(ctx, sync); err != nil {
				return 0, fmt.Errorf("insert %s: sync identity: %w", d.Name, err)
			}
		}
	}
	if err := f.m.SetIdentity(inst, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Get читает запись по идентификатору.
func (f *Facade) Get(ctx context.Context, entity string, id int64) (inst meta.Instance, err error) {
	ctx, span := f.start(ctx, "Get", entity)
	defer func() { finish(span, err) }()

	d, err := f.reg.Lookup(entity)
	if err != nil {
		return nil, err
	}
	rows, err := f.store.DB().QueryContext(ctx, selectByIDSQL(d, f.store.Dialect()), id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", d.Name, err)
	}
	defer rows.Close()

	out, err := f.scan(d, rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ormerr.New(ormerr.CodeRecordNotFound, d.Name, "", "id %d", id)
	}
	return out[0], nil
}

// Page — окно выборки List.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// List возвращает записи по возрастанию идентификатора и общее их число.
func (f *Facade) List(ctx context.Context, entity string, page Page) (items []meta.Instance, total int, err error) {
	ctx, span := f.start(ctx, "List", entity)
	defer func() { finish(span, err) }()

	d, err := f.reg.Lookup(entity)
	if err != nil {
		return nil, 0, err
	}
	page = page.normalize()
	if err := f.store.DB().QueryRowContext(ctx, countSQL(d, f.store.Dialect())).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", d.Name, err)
	}
	rows, err := f.store.DB().QueryContext(ctx, listSQL(d, f.store.Dialect()), page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", d.Name, err)
	}
	defer rows.Close()

	items, err = f.scan(d, rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (f *Facade) scan(d *registry.EntityDescriptor, rows *sql.Rows) ([]meta.Instance, error) {
	names := append([]string{meta.IdentityColumn}, d.ColumnNames()...)
	var out []meta.Instance
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", d.Name, err)
		}
		row := make(marshal.Row, len(names))
		for i, n := range names {
			if vals[i] != nil {
				row[n] = vals[i]
			}
		}
		inst, err := f.m.FromRow(row, d.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", d.Name, err)
	}
	return out, nil
}

// Update перезаписывает все колонки записи.
func (f *Facade) Update(ctx context.Context, inst meta.Instance) (err error) {
	ctx, span := f.start(ctx, "Update", inst.EntityName())
	defer func() { finish(span, err) }()

	d, id, err := f.persisted(inst)
	if err != nil {
		return err
	}
	row, err := f.m.ToRow(inst)
	if err != nil {
		return err
	}
	query, args := updateSQL(d, row, id, f.store.Dialect())
	res, err := f.store.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", d.Name, err)
	}
	return affected(res, d.Name, id)
}

// Delete удаляет запись экземпляра. Идентификатор сбрасывается в NotPersistedID.
func (f *Facade) Delete(ctx context.Context, inst meta.Instance) (err error) {
	ctx, span := f.start(ctx, "Delete", inst.EntityName())
	defer func() { finish(span, err) }()

	d, id, err := f.persisted(inst)
	if err != nil {
		return err
	}
	res, err := f.store.DB().ExecContext(ctx, deleteSQL(d, f.store.Dialect()), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", d.Name, err)
	}
	if err := affected(res, d.Name, id); err != nil {
		return err
	}
	return f.m.SetIdentity(inst, meta.NotPersistedID)
}

func (f *Facade) persisted(inst meta.Instance) (*registry.EntityDescriptor, int64, error) {
	d, err := f.reg.Lookup(inst.EntityName())
	if err != nil {
		return nil, 0, err
	}
	id, err := f.m.Identity(inst)
	if err != nil {
		return nil, 0, err
	}
	if id == meta.NotPersistedID {
		return nil, 0, ormerr.New(ormerr.CodeNotPersisted, d.Name, "", "")
	}
	return d, id, nil
}

func affected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if n == 0 {
		return ormerr.New(ormerr.CodeRecordNotFound, entity, "", "id %d", id)
	}
	return nil
}

// InsertBatch сохраняет все экземпляры в одной транзакции. При любой ошибке
// транзакция откатывается, идентификаторы всех элементов сбрасываются
// в NotPersistedID, возвращается один *BatchError.
func (f *Facade) InsertBatch(ctx context.Context, insts []meta.Instance) (err error) {
	opID := f.newOpID()
	ctx, span := f.start(ctx, "InsertBatch", "")
	span.SetAttributes(attribute.String("tabula.op_id", opID), attribute.Int("tabula.batch_size", len(insts)))
	defer func() { finish(span, err) }()

	if len(insts) == 0 {
		return nil
	}
	tx, err := f.store.BeginTx(ctx)
	if err != nil {
		return &BatchError{OpID: opID, Index: NoElement, Err: err}
	}

	fail := func(i int, entity string, cause error) error {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("batch %s: rollback failed: %v", opID, rbErr)
		}
		for _, inst := range insts {
			if inst == nil {
				continue
			}
			if err := f.m.SetIdentity(inst, meta.NotPersistedID); err != nil {
				log.Printf("batch %s: reset identity of %s: %v", opID, inst.EntityName(), err)
			}
		}
		if i == NoElement {
			log.Printf("batch %s rolled back: %v", opID, cause)
		} else {
			log.Printf("batch %s rolled back at element %d: %v", opID, i, cause)
		}
		return &BatchError{OpID: opID, Index: i, Entity: entity, Err: cause}
	}

	for i, inst := range insts {
		if inst == nil {
			return fail(i, "", errors.New("instance is nil"))
		}
		if _, err := f.insert(ctx, tx, inst); err != nil {
			return fail(i, inst.EntityName(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail(NoElement, "", fmt.Errorf("commit: %w", err))
	}
	log.Printf("batch %s committed: %d records", opID, len(insts))
	return nil
}
