// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/infrastructure/storage/postgres"
)

// lineColumns is the column order of every *_lines table.
var lineColumns = []string{
	"document_id", "line_no", "product_id", "name", "description",
	"quantity", "unit_price", "discount", "tax", "total",
}

// BaseDocumentRepo provides common functionality for document repositories:
// owner-scoped header CRUD plus the line table.
type BaseDocumentRepo[T any] struct {
	txm         *postgres.TxManager
	tableName   string
	linesTable  string
	entityName  string
	selectCols  []string
	searchCols  []string
	sortCols    map[string]string
	constraints map[string]func(T) error
	newFn       func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName, linesTable, entityName string,
	selectCols, searchCols []string,
	sortCols map[string]string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:         txm,
		tableName:   tableName,
		linesTable:  linesTable,
		entityName:  entityName,
		selectCols:  selectCols,
		searchCols:  searchCols,
		sortCols:    sortCols,
		constraints: make(map[string]func(T) error),
		newFn:       newFn,
	}
}

// OnUnique maps a unique constraint name to a domain error.
func (r *BaseDocumentRepo[T]) OnUnique(constraint string, fn func(T) error) {
	r.constraints[constraint] = fn
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

func (r *BaseDocumentRepo[T]) mapError(err error, doc T, op string) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		if fn, found := r.constraints[constraint]; found {
			return fn(doc)
		}
		return apperror.NewConflict(r.entityName + " violates unique constraint " + constraint)
	}
	if postgres.ForeignKeyViolation(err) {
		return apperror.NewValidation(r.entityName + " references a missing record").WithCause(err)
	}
	return fmt.Errorf("%s %s: %w", op, r.tableName, err)
}

func (r *BaseDocumentRepo[T]) columns(doc T, skip ...string) map[string]any {
	data := postgres.StructToMap(doc)
	out := make(map[string]any, len(r.selectCols))
outer:
	for _, col := range r.selectCols {
		for _, s := range skip {
			if col == s {
				continue outer
			}
		}
		out[col] = data[col]
	}
	return out
}

// Insert writes the document header.
func (r *BaseDocumentRepo[T]) Insert(ctx context.Context, doc T) error {
	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(r.columns(doc)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return r.mapError(err, doc, "insert")
	}
	return nil
}

// UpdateVersioned saves the header with optimistic locking and returns the
// new version.
func (r *BaseDocumentRepo[T]) UpdateVersioned(ctx context.Context, doc T) (int, error) {
	data := postgres.StructToMap(doc)
	version, ok := data["version"].(int)
	if !ok {
		return 0, fmt.Errorf("document has no 'version' field or it is not an int")
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(r.columns(doc, "id", "owner_id", "version", "created_at")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": data["id"], "owner_id": data["owner_id"], "version": version}).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var next int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&next)
	if postgres.IsNoRows(err) {
		return 0, apperror.NewConcurrentModification(r.entityName, data["id"])
	}
	if err != nil {
		return 0, r.mapError(err, doc, "update")
	}
	return next, nil
}

// Get retrieves a document header of owner, optionally locking the row.
func (r *BaseDocumentRepo[T]) Get(ctx context.Context, ownerID, docID id.ID, forUpdate bool) (T, error) {
	doc := r.newFn()

	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"id": docID, "owner_id": ownerID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return doc, apperror.NewNotFound(r.entityName, docID.String())
		}
		return doc, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return doc, nil
}

// GetLines loads the lines of a document in line order.
func (r *BaseDocumentRepo[T]) GetLines(ctx context.Context, docID id.ID) ([]billing.LineItem, error) {
	sql, args, err := r.Builder().
		Select(lineColumns[1:]...).
		From(r.linesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []billing.LineItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s lines: %w", r.entityName, err)
	}
	return lines, nil
}

// SaveLines replaces the lines of a document. Requires a transaction.
func (r *BaseDocumentRepo[T]) SaveLines(ctx context.Context, docID id.ID, lines []billing.LineItem) error {
	sql, args, err := r.Builder().
		Delete(r.linesTable).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s lines: %w", r.entityName, err)
	}

	rows := make([][]any, 0, len(lines))
	for i, l := range lines {
		lineNo := l.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		rows = append(rows, []any{
			docID, lineNo, l.ProductID, l.Name, l.Description,
			l.Quantity, l.UnitPrice, l.Discount, l.Tax, l.Total,
		})
	}
	if _, err := r.txm.CopyRows(ctx, r.linesTable, lineColumns, rows); err != nil {
		return err
	}
	return nil
}

// List runs a filtered, counted and paginated select of document headers.
func (r *BaseDocumentRepo[T]) List(
	ctx context.Context,
	ownerID id.ID,
	filter domain.ListFilter,
	where func(q squirrel.SelectBuilder) squirrel.SelectBuilder,
) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"owner_id": ownerID})
	if where != nil {
		q = where(q)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		or := squirrel.Or{}
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := postgres.ParseOrderBy(filter.OrderBy, r.sortCols, "created_at DESC")
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.entityName, err)
	}
	return result, nil
}
