package model

import "time"

// DocumentRecord 是入库台账中的一行，只追加、不修改。
type DocumentRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	DocumentID string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"documentId"`
	IndexName  string    `gorm:"type:varchar(255);not null;index" json:"index"`
	Filename   string    `gorm:"type:varchar(255);not null" json:"filename"`
	MIMEType   string    `gorm:"type:varchar(255)" json:"mimeType"`
	SizeBytes  int64     `gorm:"not null" json:"sizeBytes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentRecord) TableName() string {
	return "ingested_documents"
}
