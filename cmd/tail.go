package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/outbox-relay/internal/app"
	"github.com/jmehdipour/outbox-relay/internal/kafka"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	tailTopic string
	tailGroup string
)

// tail reads relayed messages back from Kafka, for checking a deployment end to end.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print messages relayed to a Kafka topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if len(cfg.Publisher.Kafka.Brokers) == 0 {
			return fmt.Errorf("publisher.kafka.brokers is empty")
		}
		topic := tailTopic
		if topic == "" {
			topic = cfg.Ingest.Topic
		}

		consumer := kafka.NewConsumerFromConfig(kafka.ConsumerConfig{
			Brokers: cfg.Publisher.Kafka.Brokers,
			Topic:   topic,
			GroupID: tailGroup,
		})
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("tailing topic", zap.String("topic", topic), zap.String("group", tailGroup))
		for {
			m, err := consumer.Read(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}
			fmt.Printf("%s partition=%d offset=%d key=%s trace_id=%s %s\n",
				m.Topic, m.Partition, m.Offset, m.Key,
				kafka.HeaderValue(m, "trace_id"), m.Value)
		}
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailTopic, "topic", "", "topic to read (default ingest.topic)")
	tailCmd.Flags().StringVar(&tailGroup, "group", "", "consumer group; empty reads without committing")
}
