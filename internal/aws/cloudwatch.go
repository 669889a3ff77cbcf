package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

// MetricSightingsIngested is the CloudWatch metric name emitted per batch.
const MetricSightingsIngested = "SightingsIngested"

// MetricEmitter reports ingested batch sizes to CloudWatch.
type MetricEmitter struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricEmitter returns an emitter writing into namespace.
func NewMetricEmitter(client CloudWatchAPI, namespace string) *MetricEmitter {
	return &MetricEmitter{
		CloudWatch: client,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// Name identifies the sink in logs and metrics.
func (e *MetricEmitter) Name() string { return "cloudwatch" }

// Publish emits one data point with the batch size. Empty batches are reported too.
func (e *MetricEmitter) Publish(ctx context.Context, _ string, batch []sightings.Sighting) error {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(e.Namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: sdkaws.String(MetricSightingsIngested),
				Timestamp:  sdkaws.Time(e.nowFunc()),
				Unit:       cwtypes.StandardUnitCount,
				Value:      sdkaws.Float64(float64(len(batch))),
			},
		},
	}
	if _, err := e.CloudWatch.PutMetricData(ctx, input); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}
