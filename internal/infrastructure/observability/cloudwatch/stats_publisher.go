package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/seqpulse/pkg/logger"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// StatsPublisherConfig holds configuration for CloudWatch counter publishing.
type StatsPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "SeqPulse/Pipeline")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all counters
	BufferSize        int               // Buffer size before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
}

type counterDatum struct {
	name       string
	value      float64
	dimensions map[string]string
	at         time.Time
}

// StatsPublisher ships pipeline counters (jobs completed, retried, failed,
// verdicts created) to CloudWatch. Counters are buffered and flushed in
// batches; losing a counter never fails the job that emitted it.
type StatsPublisher struct {
	client            *cloudwatch.Client
	namespace         string
	defaultDimensions map[string]string
	logger            *logger.Logger

	buffer     []counterDatum
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func NewStatsPublisher(ctx context.Context, cfg StatsPublisherConfig, log *logger.Logger) (*StatsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := &StatsPublisher{
		client:            cloudwatch.NewFromConfig(awsCfg),
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		logger:            log,
		buffer:            make([]counterDatum, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// Count buffers one counter increment. A full buffer triggers a synchronous
// flush; a flush failure is logged and the counters are dropped.
func (p *StatsPublisher) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer = append(p.buffer, counterDatum{
		name:       name,
		value:      value,
		dimensions: dimensions,
		at:         time.Now().UTC(),
	})

	if len(p.buffer) >= p.bufferSize {
		if err := p.flushBufferUnsafe(ctx); err != nil {
			p.logger.Warn("Dropping buffered counters after flush failure", "error", err.Error())
			p.buffer = p.buffer[:0]
		}
	}
}

// Flush forces immediate publication of all buffered counters.
func (p *StatsPublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and drains the buffer.
func (p *StatsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

func (p *StatsPublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("Periodic counter flush failed", "error", err.Error())
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *StatsPublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, c := range p.buffer {
		data = append(data, p.convertToDatum(c))
	}

	// CloudWatch limit: 1000 datums per request.
	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(data) {
			end = len(data)
		}

		if err := p.publishBatchWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	p.buffer = p.buffer[:0]

	return nil
}

// publishBatchWithRetry publishes a batch with exponential backoff retry.
func (p *StatsPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		}

		_, err := p.client.PutMetricData(ctx, input)
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *StatsPublisher) convertToDatum(c counterDatum) types.MetricDatum {
	dimensions := make([]types.Dimension, 0, len(p.defaultDimensions)+len(c.dimensions))

	for key, value := range p.defaultDimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(value),
		})
	}
	for key, value := range c.dimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(value),
		})
	}

	return types.MetricDatum{
		MetricName: aws.String(c.name),
		Value:      aws.Float64(c.value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(c.at),
		Dimensions: dimensions,
	}
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Endpoint override for LocalStack testing.
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
