package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailbite/internal/pkg/config"
	"github.com/shandysiswandi/mailbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailbite/internal/pkg/instrument"
	"github.com/shandysiswandi/mailbite/internal/pkg/messaging"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

const (
	defaultRequestTopic = "mail.send.requested"
	defaultReplyTopic   = "mail.send.completed"
	defaultGroup        = "mailbite-dispatch"
	defaultConcurrency  = 10
)

type ConsumerConfig struct {
	Topic       string
	ReplyTopic  string
	Group       string
	Concurrency int
}

// ConsumerConfigFrom reads modules.dispatch.consumer.* and fills defaults.
func ConsumerConfigFrom(cfg config.Config) ConsumerConfig {
	cc := ConsumerConfig{
		Topic:       cfg.GetString("modules.dispatch.consumer.topic"),
		ReplyTopic:  cfg.GetString("modules.dispatch.consumer.reply_topic"),
		Group:       cfg.GetString("modules.dispatch.consumer.group"),
		Concurrency: cfg.GetInt("modules.dispatch.consumer.concurrency"),
	}

	if cc.Topic == "" {
		cc.Topic = defaultRequestTopic
	}
	if cc.ReplyTopic == "" && !cfg.IsSet("modules.dispatch.consumer.reply_topic") {
		cc.ReplyTopic = defaultReplyTopic
	}
	if cc.Group == "" {
		cc.Group = defaultGroup
	}
	if cc.Concurrency <= 0 {
		cc.Concurrency = defaultConcurrency
	}

	return cc
}

func RegisterMQConsumer(
	ctx context.Context,
	cc ConsumerConfig,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) bool {
	h := &MQHandler{uc: uc, uuid: uuid, ins: ins, publisher: messenger, replyTopic: cc.ReplyTopic}

	return routine.Go(ctx, func(pCtx context.Context) error {
		slog.InfoContext(ctx, "Running job for handling consumer", "topic", cc.Topic, "group", cc.Group)
		return messenger.Consume(pCtx,
			cc.Topic,
			h.SendRequested,
			messaging.WithGroup(cc.Group),
			messaging.WithAutoAck(true),
			messaging.WithConcurrency(cc.Concurrency),
			messaging.WithMaxInFlight(cc.Concurrency),
		)
	})
}
