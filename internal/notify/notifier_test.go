package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
)

type capturedEmail struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (c *capturedEmail) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	c.inputs = append(c.inputs, input)
	return &ses.SendEmailOutput{}, c.err
}

type capturedSMS struct {
	inputs []*sns.PublishInput
	err    error
}

func (c *capturedSMS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	c.inputs = append(c.inputs, input)
	return &sns.PublishOutput{}, c.err
}

type staticApplicants struct{ applicant *models.Applicant }

func (s *staticApplicants) Get(_ context.Context, _ string) (*models.Applicant, error) {
	return s.applicant, nil
}
func (s *staticApplicants) Update(_ context.Context, _ string, _ map[string]interface{}) error {
	return nil
}

func testConfig(emailOn, smsOn bool) config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = emailOn
	cfg.Email.FromEmail = "loans@example.in"
	cfg.SMS.Enabled = smsOn
	cfg.SMS.SenderID = "LOANWF"
	return cfg
}

func testApp() *models.Application {
	return &models.Application{ID: "app-1", ApplicantID: "applicant-1", ProductCode: models.ProductHomeLoan}
}

func TestNotifyTransition_BothChannels(t *testing.T) {
	email := &capturedEmail{}
	sms := &capturedSMS{}
	n := New(testConfig(true, true), email, sms,
		&staticApplicants{applicant: &models.Applicant{ID: "applicant-1", Email: "asha@example.in", Mobile: "9876543210"}},
		logger.NewTestLogger(t))

	err := n.NotifyTransition(context.Background(), testApp(), models.StatusUnderReview, models.StatusApproved)

	require.NoError(t, err)
	require.Len(t, email.inputs, 1)
	assert.Equal(t, "loans@example.in", *email.inputs[0].Source)
	assert.Equal(t, []string{"asha@example.in"}, email.inputs[0].Destination.ToAddresses)
	assert.Contains(t, *email.inputs[0].Message.Subject.Data, "approved")
	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "+919876543210", *sms.inputs[0].PhoneNumber)
}

func TestNotifyTransition_DisabledChannelsSkipped(t *testing.T) {
	email := &capturedEmail{}
	sms := &capturedSMS{}
	n := New(testConfig(false, false), email, sms,
		&staticApplicants{applicant: &models.Applicant{ID: "applicant-1", Email: "asha@example.in", Mobile: "9876543210"}},
		logger.NewTestLogger(t))

	err := n.NotifyTransition(context.Background(), testApp(), models.StatusDraft, models.StatusSubmitted)

	require.NoError(t, err)
	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}

func TestNotifyTransition_MissingContactSkipsChannel(t *testing.T) {
	email := &capturedEmail{}
	sms := &capturedSMS{}
	n := New(testConfig(true, true), email, sms,
		&staticApplicants{applicant: &models.Applicant{ID: "applicant-1", Mobile: "9876543210"}},
		logger.NewTestLogger(t))

	err := n.NotifyTransition(context.Background(), testApp(), models.StatusDraft, models.StatusSubmitted)

	require.NoError(t, err)
	assert.Empty(t, email.inputs, "no email address, no email")
	assert.Len(t, sms.inputs, 1)
}

func TestNotifyTransition_EmailFailureStillSendsSMS(t *testing.T) {
	email := &capturedEmail{err: errors.New("ses throttled")}
	sms := &capturedSMS{}
	n := New(testConfig(true, true), email, sms,
		&staticApplicants{applicant: &models.Applicant{ID: "applicant-1", Email: "asha@example.in", Mobile: "9876543210"}},
		logger.NewTestLogger(t))

	err := n.NotifyTransition(context.Background(), testApp(), models.StatusUnderReview, models.StatusRejected)

	assert.Error(t, err)
	assert.Len(t, sms.inputs, 1, "sms channel must still fire")
}
