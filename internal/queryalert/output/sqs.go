package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/domain"
)

// DefaultSQSRegion is used when no region is configured.
const DefaultSQSRegion = "us-east-1"

// SQSAPI is the subset of *sqs.Client the sink needs.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSConfig configures the SQS client.
type SQSConfig struct {
	QueueURL        string
	Region          string
	Endpoint        string // custom endpoint, e.g. LocalStack
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewSQSClient builds an SQS client with static credentials. Unset keys
// fall back to the standard AWS_* environment variables.
func NewSQSClient(cfg SQSConfig) *sqs.Client {
	region := firstNonEmpty(cfg.Region, os.Getenv("AWS_REGION"), DefaultSQSRegion)
	opts := sqs.Options{Region: region}
	keyID := firstNonEmpty(cfg.AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID"))
	if keyID != "" {
		secret := firstNonEmpty(cfg.SecretAccessKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))
		token := firstNonEmpty(cfg.SessionToken, os.Getenv("AWS_SESSION_TOKEN"))
		opts.Credentials = credentials.NewStaticCredentialsProvider(keyID, secret, token)
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return sqs.New(opts)
}

// SQSSink sends each alert as a JSON message body.
type SQSSink struct {
	api      SQSAPI
	queueURL string
}

func NewSQSSink(api SQSAPI, queueURL string) (*SQSSink, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs sink: queue url is required")
	}
	return &SQSSink{api: api, queueURL: queueURL}, nil
}

func (s *SQSSink) Name() string { return "sqs" }

func (s *SQSSink) Send(ctx context.Context, alert domain.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = s.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
