package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendRawEmail(ctx context.Context, in *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESMailer sends raw MIME messages through Amazon SES so attachments and BCC survive.
type SESMailer struct {
	client sesAPI
	from   string
}

// NewSESMailer loads AWS credentials from the default chain.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from}, nil
}

// Send renders m with gomail and hands the bytes to SendRawEmail.
// gomail leaves Bcc out of the headers, so BCC recipients go into Destinations.
func (s *SESMailer) Send(ctx context.Context, m Mail) error {
	to := m.recipients()
	if len(to) == 0 {
		return errNoRecipients
	}
	var buf bytes.Buffer
	if _, err := buildMessage(s.from, m).WriteTo(&buf); err != nil {
		return fmt.Errorf("render mime: %w", err)
	}
	_, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: buf.Bytes()},
		Destinations: to,
		Source:       aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
