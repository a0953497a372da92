package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// OpsAlerter pushes new-submission events to the ops SNS topic, where the
// on-call phone bridge and Slack hook are subscribed.
type OpsAlerter struct {
	client   *sns.Client
	topicARN string
}

// OpsMessage is the event shape published to the topic.
type OpsMessage struct {
	Kind         string `json:"kind"`
	SubmissionID string `json:"submission_id"`
	Summary      string `json:"summary"`
	Link         string `json:"link,omitempty"`
}

// NewOpsAlerter creates an SNS publisher for the given topic.
func NewOpsAlerter(ctx context.Context, region, topicARN string) (*OpsAlerter, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &OpsAlerter{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
	}, nil
}

// Publish sends one submission event to the topic.
func (p *OpsAlerter) Publish(ctx context.Context, msg OpsMessage) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ops message: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Kind),
			},
		},
	}

	result, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to publish to SNS: %w", err)
	}

	return *result.MessageId, nil
}
