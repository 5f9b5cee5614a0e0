// Package notify publishes workflow events to subscribers outside the service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

const EventStatusChanged = "idea.status_changed"

// StatusChangedEvent is the message body published for every committed transition.
type StatusChangedEvent struct {
	EventType    string         `json:"eventType"`
	TransitionID string         `json:"transitionId"`
	IdeaID       string         `json:"ideaId"`
	FromStatus   *models.Status `json:"fromStatus"`
	ToStatus     models.Status  `json:"toStatus"`
	Reason       *string        `json:"reason,omitempty"`
	ChangedBy    string         `json:"changedBy"`
	ChangedAt    time.Time      `json:"changedAt"`
}

// Publisher is the subset of the SNS client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	publisher Publisher
	topicARN  string
	logger    logger.Logger
}

var _ workflow.Notifier = (*SNSNotifier)(nil)

func NewSNSNotifier(publisher Publisher, topicARN string, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		topicARN:  topicARN,
		logger:    log.WithFields(map[string]interface{}{"component": "sns-notifier"}),
	}
}

func (n *SNSNotifier) StatusChanged(ctx context.Context, t models.WorkflowTransition) error {
	body, err := json.Marshal(StatusChangedEvent{
		EventType:    EventStatusChanged,
		TransitionID: t.ID,
		IdeaID:       t.IdeaID,
		FromStatus:   t.FromStatus,
		ToStatus:     t.ToStatus,
		Reason:       t.Reason,
		ChangedBy:    t.ChangedBy,
		ChangedAt:    t.CreatedAt,
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", fmt.Errorf("encode event: %w", err))
	}

	out, err := n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventStatusChanged)},
			"toStatus":  {DataType: aws.String("String"), StringValue: aws.String(string(t.ToStatus))},
		},
	})
	if err != nil {
		return apperrors.NewNotificationSendFailedError("sns", err)
	}

	n.logger.Debug("status change published", map[string]interface{}{
		"ideaId":    t.IdeaID,
		"messageId": aws.ToString(out.MessageId),
	})
	return nil
}

// NopNotifier drops events; used when no notification channel is enabled.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, models.WorkflowTransition) error { return nil }
