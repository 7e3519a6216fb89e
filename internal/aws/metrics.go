package aws

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricNamespace = "LeadPipeline"

// Metrics emits custom CloudWatch counters. Emission is best-effort:
// a failed PutMetricData is logged and otherwise ignored so metrics can
// never fail the request that produced them.
type Metrics struct {
	CloudWatch CloudWatchAPI
}

// NewMetrics returns a Metrics emitter. A nil client disables emission.
func NewMetrics(cwClient CloudWatchAPI) *Metrics {
	return &Metrics{CloudWatch: cwClient}
}

// Count emits a count-of-1 metric with optional dimensions.
func (m *Metrics) Count(ctx context.Context, name string, dimensions map[string]string) {
	if m == nil || m.CloudWatch == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Value:      awsFloat64(1),
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  awsTime(time.Now().UTC()),
	}
	for k, v := range dimensions {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  awsString(k),
			Value: awsString(v),
		})
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  awsString(metricNamespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}

	if _, err := m.CloudWatch.PutMetricData(ctx, input); err != nil {
		log.Printf("metrics: put metric %s failed: %v", name, err)
	}
}

func awsFloat64(f float64) *float64  { return &f }
func awsTime(t time.Time) *time.Time { return &t }
