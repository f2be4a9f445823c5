// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"diof-search/internal/config"
	"diof-search/pkg/log"
	"diof-search/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor 由处理入库任务的组件实现，使消费者与具体的处理流程解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// Producer 把入库任务写入 Kafka 主题。
type Producer struct {
	writer *kafka.Writer
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// Publish 发送一个入库任务，以任务 ID 作为消息 key。
func (p *Producer) Publish(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.TaskID),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理入库任务，直到 ctx 被取消。
// 入库不做重试：处理失败由 processor 记录到任务状态里，offset 照常提交。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 64e6,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者收到停止信号")
			} else {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)
		handleMessage(ctx, m.Value, processor)

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleMessage 解析并处理一条消息。格式错误的消息直接丢弃，避免阻塞队列。
func handleMessage(ctx context.Context, value []byte, processor TaskProcessor) {
	var task tasks.IngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return
	}
	log.Infof("开始处理入库任务: TaskID=%s, FileName=%s", task.TaskID, task.Filename)
	if err := processor.Process(ctx, task); err != nil {
		log.Errorf("入库任务失败: TaskID=%s, Error: %v", task.TaskID, err)
		return
	}
	log.Infof("入库任务处理成功: TaskID=%s", task.TaskID)
}
