// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"
	"sort"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"citizenship-adjudicator/internal/models"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient e-mails job summaries to a fixed recipient list.
type SESClient struct {
	client     sesAPI
	from       string
	recipients []string
}

func NewSESClient(ctx context.Context, region, from string, recipients []string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg), from: from, recipients: recipients}, nil
}

func (s *SESClient) SendJobSummary(ctx context.Context, n models.JobNotification) (string, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(s.from),
		Destination: &types.Destination{ToAddresses: s.recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subjectFor(n)), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(summaryText(n)), Charset: awssdk.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}

func summaryText(n models.JobNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", n.JobID)
	fmt.Fprintf(&b, "Status: %s\n", n.Status)
	if n.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", n.Message)
	}
	fmt.Fprintf(&b, "Processed: %d of %d (%d ok, %d failed)\n", n.Processed, n.Total, n.Succeeded, n.Failed)

	kinds := make([]string, 0, len(n.Decisions))
	for k := range n.Decisions {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %s: %d\n", k, n.Decisions[k])
	}
	if n.ReportPath != "" {
		fmt.Fprintf(&b, "Report: %s\n", n.ReportPath)
	}
	return b.String()
}
