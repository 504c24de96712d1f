// Package notify sends applicant-facing messages when an application
// changes state. Email goes out via SES, SMS via SNS; either channel can be
// disabled independently. Delivery is best effort and never blocks the
// transition that triggered it.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"loan-workflow/internal/clients"
	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
)

// EmailSender is the SES surface the notifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the notifier needs.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier renders and delivers transition messages.
type Notifier struct {
	cfg        config.NotificationConfig
	email      EmailSender
	sms        SMSSender
	applicants clients.ApplicantService
	logger     logger.Logger
}

func New(cfg config.NotificationConfig, email EmailSender, sms SMSSender, applicants clients.ApplicantService, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:        cfg,
		email:      email,
		sms:        sms,
		applicants: applicants,
		logger:     log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// statusLines maps each reached status to the applicant-facing message.
var statusLines = map[models.ApplicationStatus]string{
	models.StatusSubmitted:   "Your loan application has been submitted and is awaiting review.",
	models.StatusUnderReview: "Your loan application is now under review.",
	models.StatusApproved:    "Congratulations, your loan application has been approved.",
	models.StatusRejected:    "We are sorry, your loan application could not be approved.",
	models.StatusDisbursed:   "Your loan amount has been disbursed.",
	models.StatusDraft:       "Your loan application has been returned for correction.",
}

// NotifyTransition sends the message for the reached status on every enabled
// channel. A failed channel is logged and does not fail the other.
func (n *Notifier) NotifyTransition(ctx context.Context, app *models.Application, from, to models.ApplicationStatus) error {
	line, ok := statusLines[to]
	if !ok {
		return nil
	}

	applicant, err := n.applicants.Get(ctx, app.ApplicantID)
	if err != nil {
		return err
	}

	var firstErr error
	if n.cfg.Email.Enabled && n.email != nil && applicant.Email != "" {
		if err := n.sendEmail(ctx, applicant.Email, app, to, line); err != nil {
			n.logger.Warn("email notification failed", map[string]interface{}{
				"application_id": app.ID, "error": err.Error(),
			})
			firstErr = err
		}
	}
	if n.cfg.SMS.Enabled && n.sms != nil && applicant.Mobile != "" {
		if err := n.sendSMS(ctx, applicant.Mobile, line); err != nil {
			n.logger.Warn("sms notification failed", map[string]interface{}{
				"application_id": app.ID, "error": err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *Notifier) sendEmail(ctx context.Context, to string, app *models.Application, status models.ApplicationStatus, line string) error {
	subject := fmt.Sprintf("Loan application %s: %s", app.ID, status)
	body := fmt.Sprintf("%s\n\nApplication: %s\nProduct: %s\n", line, app.ID, app.ProductCode)

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, mobile, line string) error {
	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String("+91" + mobile),
		Message:     aws.String(line),
	})
	return err
}
