// internal/common/aws/notifier.go
package aws

import (
	"context"
	"errors"

	apperrors "citizenship-adjudicator/internal/common/errors"
	"citizenship-adjudicator/internal/common/logger"
	"citizenship-adjudicator/internal/models"
)

// Notifier fans a job notification out to the enabled channels. Either
// client may be nil.
type Notifier struct {
	sns    *SNSClient
	ses    *SESClient
	logger logger.Logger
}

func NewNotifier(snsClient *SNSClient, sesClient *SESClient, log logger.Logger) *Notifier {
	return &Notifier{
		sns:    snsClient,
		ses:    sesClient,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Notify tries every channel and reports all failures together.
func (n *Notifier) Notify(ctx context.Context, msg models.JobNotification) error {
	var errs []error

	if n.sns != nil {
		id, err := n.sns.PublishJob(ctx, msg)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError("sns", err))
		} else {
			n.logger.Info("job notification published", map[string]interface{}{"jobId": msg.JobID, "messageId": id})
		}
	}

	if n.ses != nil {
		id, err := n.ses.SendJobSummary(ctx, msg)
		if err != nil {
			errs = append(errs, apperrors.NewNotificationSendFailedError("ses", err))
		} else {
			n.logger.Info("job summary e-mailed", map[string]interface{}{"jobId": msg.JobID, "messageId": id})
		}
	}

	return errors.Join(errs...)
}
