package es

import (
	"strings"

	"diof-search/internal/model"
)

// PipelineBody 构建附件抽取管道：识别二进制格式、抽取全文，并在抽取后丢弃原始 base64。
func PipelineBody() map[string]interface{} {
	return map[string]interface{}{
		"description": "Extract text from uploaded documents",
		"processors": []map[string]interface{}{
			{
				"attachment": map[string]interface{}{
					"field":         model.FieldData,
					"target_field":  model.FieldAttachment,
					"indexed_chars": -1,
					"remove_binary": true,
				},
			},
		},
	}
}

// IndexBody 把 IndexSchema 渲染为 create-index 请求体。
// 正文字段使用自定义分析器，文件名是不分词的 keyword，原始负载（若被保留）是不可检索的 binary。
func IndexBody(schema model.IndexSchema) map[string]interface{} {
	analyzer := schema.Analyzer.Name
	if analyzer == "" {
		analyzer = "diof_text"
	}

	stopFilter := analyzer + "_stop"
	tokenFilters := map[string]interface{}{
		stopFilter: map[string]interface{}{
			"type":      "stop",
			"stopwords": stopWords(schema.Analyzer.StopWords),
		},
	}
	chain := []string{"lowercase", stopFilter}
	if schema.Analyzer.Stemmer != "" {
		stemFilter := analyzer + "_stemmer"
		tokenFilters[stemFilter] = map[string]interface{}{
			"type":     "stemmer",
			"language": schema.Analyzer.Stemmer,
		}
		chain = append(chain, stemFilter)
	}

	return map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"filter": tokenFilters,
				"analyzer": map[string]interface{}{
					analyzer: map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    chain,
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"dynamic": false,
			"properties": map[string]interface{}{
				model.FieldFilename: map[string]interface{}{"type": "keyword"},
				model.FieldData:     map[string]interface{}{"type": "binary"},
				model.FieldAttachment: map[string]interface{}{
					"properties": map[string]interface{}{
						"content":        map[string]interface{}{"type": "text", "analyzer": analyzer},
						"title":          map[string]interface{}{"type": "text", "analyzer": analyzer},
						"content_type":   map[string]interface{}{"type": "keyword"},
						"language":       map[string]interface{}{"type": "keyword"},
						"author":         map[string]interface{}{"type": "keyword"},
						"content_length": map[string]interface{}{"type": "long"},
						"date":           map[string]interface{}{"type": "date"},
					},
				},
			},
		},
	}
}

// stopWords 单个 "_lang_" 形式的值作为语言预设，其余作为显式列表。
func stopWords(words []string) interface{} {
	if len(words) == 0 {
		return model.DefaultStopWordsPreset
	}
	if len(words) == 1 && strings.HasPrefix(words[0], "_") && strings.HasSuffix(words[0], "_") {
		return words[0]
	}
	return words
}
