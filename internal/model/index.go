package model

import "time"

// 索引中的字段名，schema、抽取管道和查询共用。
const (
	FieldFilename          = "filename"
	FieldData              = "data"
	FieldAttachment        = "attachment"
	FieldContent           = "attachment.content"
	DefaultStopWordsPreset = "_portuguese_"
)

// AnalyzerSpec 描述自定义文本分析器：标准分词器 + 小写 + 停用词（+ 可选词干）。
type AnalyzerSpec struct {
	Name      string
	StopWords []string
	Stemmer   string
}

// IndexSchema 在首次入库之前创建，之后不可变。
type IndexSchema struct {
	Name     string
	Analyzer AnalyzerSpec
}

// IndexState 是索引 schema 的登记记录。
// SchemaLocked 在第一篇文档入库后置为 true，此后拒绝任何重建 schema 的请求。
type IndexState struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	Name         string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	AnalyzerName string     `gorm:"type:varchar(100);not null" json:"analyzer"`
	StopWords    string     `gorm:"type:varchar(1024)" json:"stopWords"`
	Stemmer      string     `gorm:"type:varchar(100)" json:"stemmer"`
	SchemaLocked bool       `gorm:"not null;default:false" json:"schemaLocked"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	LockedAt     *time.Time `gorm:"default:null" json:"lockedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IndexState) TableName() string {
	return "index_schemas"
}
