package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"
)

// Mailer sends transactional email (submitter confirmations, staff alerts).
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SESMailer sends email through AWS SES.
type SESMailer struct {
	client *ses.Client
	from   string
	logger *zap.Logger
}

// SESConfig holds SES mailer settings.
type SESConfig struct {
	Region    string
	FromEmail string
}

// NewSESMailer creates an SES-backed mailer.
func NewSESMailer(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config: %w", err)
	}

	return &SESMailer{
		client: ses.NewFromConfig(awsCfg),
		from:   cfg.FromEmail,
		logger: logger,
	}, nil
}

// SendEmail sends a plain-text email via SES.
func (m *SESMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email recipient is empty")
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}

	m.logger.Info("email sent via SES",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("message_id", *result.MessageId),
	)

	return nil
}

// LogMailer logs instead of sending (local development).
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.logger.Info("email (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}
