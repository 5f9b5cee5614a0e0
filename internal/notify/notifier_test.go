package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const topic = "arn:aws:sns:eu-west-1:123456789012:ideaflow-events"

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func sampleTransition() models.WorkflowTransition {
	reason := "three investors committed"
	return models.WorkflowTransition{
		ID:         "tr-1",
		IdeaID:     "idea-1",
		FromStatus: models.StatusValidated.Ptr(),
		ToStatus:   models.StatusInvestmentReady,
		Reason:     &reason,
		ChangedBy:  "admin-1",
		CreatedAt:  time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSNSNotifier_StatusChanged_Publishes(t *testing.T) {
	pub := new(mockPublisher)
	var published *sns.PublishInput
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*sns.PublishInput")).
		Run(func(args mock.Arguments) { published = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{MessageId: aws.String("msg-1")}, nil).Once()

	n := NewSNSNotifier(pub, topic, logger.NewTestLogger(t))
	require.NoError(t, n.StatusChanged(context.Background(), sampleTransition()))
	pub.AssertExpectations(t)

	require.NotNil(t, published)
	assert.Equal(t, topic, aws.ToString(published.TopicArn))
	assert.Equal(t, EventStatusChanged, aws.ToString(published.MessageAttributes["eventType"].StringValue))
	assert.Equal(t, "investment_ready", aws.ToString(published.MessageAttributes["toStatus"].StringValue))

	var event StatusChangedEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(published.Message)), &event))
	assert.Equal(t, "tr-1", event.TransitionID)
	assert.Equal(t, models.StatusValidated, *event.FromStatus)
	assert.Equal(t, models.StatusInvestmentReady, event.ToStatus)
	assert.Equal(t, "admin-1", event.ChangedBy)
}

func TestSNSNotifier_StatusChanged_PublishFailure(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := NewSNSNotifier(pub, topic, logger.NewTestLogger(t))
	err := n.StatusChanged(context.Background(), sampleTransition())

	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.StatusChanged(context.Background(), sampleTransition()))
}
