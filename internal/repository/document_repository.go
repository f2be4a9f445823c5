package repository

import (
	"diof-search/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 是入库台账，只追加。
type DocumentRepository interface {
	Create(record *model.DocumentRecord) error
	FindByIndex(indexName string, limit, offset int) ([]model.DocumentRecord, error)
	CountByIndex(indexName string) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(record *model.DocumentRecord) error {
	return r.db.Create(record).Error
}

// FindByIndex 按入库时间倒序分页查询。
func (r *documentRepository) FindByIndex(indexName string, limit, offset int) ([]model.DocumentRecord, error) {
	var records []model.DocumentRecord
	err := r.db.Where("index_name = ?", indexName).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

func (r *documentRepository) CountByIndex(indexName string) (int64, error) {
	var count int64
	err := r.db.Model(&model.DocumentRecord{}).Where("index_name = ?", indexName).Count(&count).Error
	return count, err
}
