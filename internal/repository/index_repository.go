// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"
	"time"

	"diof-search/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndexRepository 登记已创建的索引 schema 及其锁定状态。
type IndexRepository interface {
	// FindByName 返回登记记录；不存在时返回 (nil, nil)。
	FindByName(name string) (*model.IndexState, error)
	Create(state *model.IndexState) error
	// Lock 将 schema 标记为已锁定，未登记的索引会被补登为已锁定。重复调用无副作用。
	Lock(name string) error
	FindAll() ([]model.IndexState, error)
}

type indexRepository struct {
	db *gorm.DB
}

// NewIndexRepository 创建一个新的 IndexRepository 实例。
func NewIndexRepository(db *gorm.DB) IndexRepository {
	return &indexRepository{db: db}
}

func (r *indexRepository) FindByName(name string) (*model.IndexState, error) {
	var state model.IndexState
	err := r.db.Where("name = ?", name).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *indexRepository) Create(state *model.IndexState) error {
	return r.db.Create(state).Error
}

// Lock 先锁定已登记的未锁定记录；没有可更新的行时补登一条已锁定记录，
// 冲突（记录已存在且已锁定）时什么也不做。
func (r *indexRepository) Lock(name string) error {
	now := time.Now()
	res := r.db.Model(&model.IndexState{}).
		Where("name = ? AND schema_locked = ?", name, false).
		Updates(map[string]interface{}{"schema_locked": true, "locked_at": &now})
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}
	state := &model.IndexState{Name: name, SchemaLocked: true, LockedAt: &now}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(state).Error
}

func (r *indexRepository) FindAll() ([]model.IndexState, error) {
	var states []model.IndexState
	err := r.db.Order("name asc").Find(&states).Error
	return states, err
}
