// Package catalog_repo provides PostgreSQL implementations for catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides owner-scoped CRUD for catalog entities.
// Embed it in specific catalog repositories.
type BaseCatalogRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	searchCols []string
	sortCols   map[string]string
	newFn      func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T any](
	txm *postgres.TxManager,
	tableName, entityName string,
	selectCols, searchCols []string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	sortCols := make(map[string]string, len(selectCols))
	for _, col := range selectCols {
		sortCols[col] = col
	}
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		searchCols: searchCols,
		sortCols:   sortCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// columns returns the entity's values restricted to selectCols.
func (r *BaseCatalogRepo[T]) columns(entity T, skip ...string) map[string]any {
	data := postgres.StructToMap(entity)
	out := make(map[string]any, len(r.selectCols))
outer:
	for _, col := range r.selectCols {
		for _, s := range skip {
			if col == s {
				continue outer
			}
		}
		if val, ok := data[col]; ok {
			out[col] = val
		}
	}
	return out
}

// Insert writes a new row. Unique violations are passed to onUnique.
func (r *BaseCatalogRepo[T]) Insert(ctx context.Context, entity T, onUnique func(constraint string) error) error {
	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(r.columns(entity)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok && onUnique != nil {
			return onUnique(constraint)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// UpdateVersioned saves entity with optimistic locking on version and
// returns the new version.
func (r *BaseCatalogRepo[T]) UpdateVersioned(ctx context.Context, entity T, onUnique func(constraint string) error) (int, error) {
	data := postgres.StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return 0, fmt.Errorf("entity has no 'id' field with db tag")
	}
	ownerID := data["owner_id"]
	version, ok := data["version"].(int)
	if !ok {
		return 0, fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(r.columns(entity, "id", "owner_id", "version", "created_at")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID, "owner_id": ownerID, "version": version}).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var next int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&next)
	if postgres.IsNoRows(err) {
		return 0, apperror.NewConcurrentModification(r.entityName, entityID)
	}
	if err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok && onUnique != nil {
			return 0, onUnique(constraint)
		}
		return 0, fmt.Errorf("update %s: %w", r.tableName, err)
	}
	return next, nil
}

func (r *BaseCatalogRepo[T]) baseSelect(ownerID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"owner_id": ownerID})
}

// Get retrieves an entity of owner by ID, optionally locking the row.
func (r *BaseCatalogRepo[T]) Get(ctx context.Context, ownerID, entityID id.ID, forUpdate bool) (T, error) {
	entity := r.newFn()

	q := r.baseSelect(ownerID).
		Where(squirrel.Eq{"id": entityID}).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

// Delete removes an entity of owner.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, ownerID, entityID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.ForeignKeyViolation(err) {
			return apperror.NewConflict(r.entityName+" is referenced by documents").
				WithDetail("id", entityID)
		}
		return fmt.Errorf("delete %s: %w", r.entityName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// List runs a filtered, counted and paginated select. where adds the
// entity-specific conditions.
func (r *BaseCatalogRepo[T]) List(
	ctx context.Context,
	ownerID id.ID,
	filter domain.ListFilter,
	where func(q squirrel.SelectBuilder) squirrel.SelectBuilder,
) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}

	q := r.baseSelect(ownerID)
	if where != nil {
		q = where(q)
	}
	if filter.Search != "" && len(r.searchCols) > 0 {
		pattern := "%" + filter.Search + "%"
		or := squirrel.Or{}
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
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
