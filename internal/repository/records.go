package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appErr "github.com/wsgraph/engine/pkg/errors"
)

// records wraps common single-table operations for a model type.
type records[T any] struct {
	db       *gorm.DB
	lockable bool
}

func newRecords[T any](db *gorm.DB, lockable bool) records[T] {
	return records[T]{db: db, lockable: lockable}
}

// find returns the first matching row or nil when nothing matches.
func (r records[T]) find(lock bool, query string, args ...any) (*T, error) {
	q := r.db
	if lock && r.lockable {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out T
	if err := q.Where(query, args...).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return &out, nil
}

func (r records[T]) first(order string, query string, args ...any) (*T, error) {
	var out T
	if err := r.db.Where(query, args...).Order(order).Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, appErr.Wrap(err, appErr.CodeInternal, "get entity failed")
	}
	return &out, nil
}

func (r records[T]) list(order string, query string, args ...any) ([]T, error) {
	var out []T
	if err := r.db.Where(query, args...).Order(order).Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list entities failed")
	}
	return out, nil
}

func (r records[T]) create(obj *T) error {
	if err := r.db.Create(obj).Error; err != nil {
		return translate(err, "create entity failed")
	}
	return nil
}

func (r records[T]) createMany(objs []T) error {
	if len(objs) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(objs, 500).Error; err != nil {
		return translate(err, "create entities failed")
	}
	return nil
}

func (r records[T]) save(obj *T) error {
	if err := r.db.Save(obj).Error; err != nil {
		return translate(err, "update entity failed")
	}
	return nil
}

func translate(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return appErr.Wrap(err, appErr.CodeVersionConflict, "unique constraint violated")
	}
	return appErr.Wrap(err, appErr.CodeInternal, msg)
}
