package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "sqs" }

// Publish sends one message per sighting. The body is the sighting JSON;
// requestID is attached as the correlation_id attribute when set.
func (p *Publisher) Publish(ctx context.Context, requestID string, batch []sightings.Sighting) error {
	for i, s := range batch {
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sighting %d: %w", i, err)
		}
		attrs := map[string]string{"title": s.Title}
		if requestID != "" {
			attrs["correlation_id"] = requestID
		}
		if s.Rarity != nil {
			attrs["rarity"] = *s.Rarity
		}
		if err := p.SendMessage(ctx, string(body), attrs); err != nil {
			return fmt.Errorf("publish sighting %d: %w", i, err)
		}
	}
	return nil
}

// SendMessage sends one message to SQS. messageBody should be a JSON string.
// attributes map[string]string -> sent as MessageAttributes; empty values are skipped.
func (p *Publisher) SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			if v == "" {
				continue
			}
			// using string type for all attrs
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
