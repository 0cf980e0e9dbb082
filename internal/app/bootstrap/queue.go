package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
)

const memoryQueueBuffer = 1024

// BuildTurnQueue returns the queue inbound turns travel through, or nil when
// turns run inline.
func BuildTurnQueue(cfg *appconfig.Config, awsCfg *aws.Config) (conversation.TurnQueue, error) {
	if cfg == nil || !cfg.UsesQueue() {
		return nil, nil
	}
	if cfg.UseMemoryQueue {
		return conversation.NewMemoryQueue(memoryQueueBuffer), nil
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: sqs turn queue requires aws config")
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(*awsCfg), strings.TrimSpace(cfg.TurnQueueURL)), nil
}
