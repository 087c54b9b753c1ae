package paygate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tachi-labs/paygate/schema"
)

const (
	CrawlTopic = "paygate_crawl"

	kafkaWriteTimeout = 5 * time.Second
)

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:         kafka.TCP(uri),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: kafkaWriteTimeout,
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()
	return kw.w.WriteMessages(
		ctx,
		kafka.Message{
			Value: body,
		},
	)
}

func (kw *KWriter) WriteCrawlEvent(ev schema.KafkaCrawlEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return kw.Write(body)
}

func (kw *KWriter) Close() error {
	return kw.w.Close()
}
