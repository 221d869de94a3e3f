// internal/notify/dispatcher.go

// Package notify renders and dispatches candidate-facing messages for
// application status changes. Rendering is fixed here; delivery goes
// through AWS SES (email) and SNS (SMS).
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"hiring-referrals-workers/internal/common/config"
	"hiring-referrals-workers/internal/common/errors"
	"hiring-referrals-workers/internal/common/logger"
	"hiring-referrals-workers/internal/common/metrics"
	"hiring-referrals-workers/internal/pipeline"
)

// Message is one rendered notification.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Kind  string `json:"kind"` // success or info
}

// MessageFor renders the candidate-facing text for a status, or reports
// that the status is silent (no notification is sent for it).
func MessageFor(status pipeline.Status, jobTitle, companyName string) (Message, bool) {
	switch status {
	case pipeline.StatusShortlisted:
		return Message{
			Title: "Application Shortlisted!",
			Body:  fmt.Sprintf("Your application for %s at %s has been shortlisted.", jobTitle, companyName),
			Kind:  "success",
		}, true
	case pipeline.StatusInterviewScheduled:
		return Message{
			Title: "Interview Scheduled",
			Body:  fmt.Sprintf("An interview has been scheduled for %s at %s.", jobTitle, companyName),
			Kind:  "info",
		}, true
	case pipeline.StatusOfferSent:
		return Message{
			Title: "Job Offer Received!",
			Body:  fmt.Sprintf("Congratulations! You have received an offer for %s at %s.", jobTitle, companyName),
			Kind:  "success",
		}, true
	case pipeline.StatusHired:
		return Message{
			Title: "Welcome Aboard!",
			Body:  fmt.Sprintf("Congratulations on joining %s as %s!", companyName, jobTitle),
			Kind:  "success",
		}, true
	case pipeline.StatusRejected:
		return Message{
			Title: "Application Update",
			Body:  fmt.Sprintf("Your application for %s at %s was not successful this time.", jobTitle, companyName),
			Kind:  "info",
		}, true
	default:
		return Message{}, false
	}
}

// EmailSender is the SES surface the dispatcher needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the SNS surface the dispatcher needs.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Recipient identifies where a notification goes. Empty fields skip the
// corresponding channel.
type Recipient struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Result reports which channels were used for one dispatch.
type Result struct {
	EmailSent bool   `json:"emailSent"`
	SMSSent   bool   `json:"smsSent"`
	Skipped   bool   `json:"skipped"`
	Title     string `json:"title,omitempty"`
}

// Dispatcher fans one status-change event out to the enabled channels.
type Dispatcher struct {
	email  EmailSender
	sms    SMSSender
	cfg    config.NotificationConfig
	logger logger.Logger
}

// NewDispatcher builds a Dispatcher. Either sender may be nil when the
// channel is disabled in config.
func NewDispatcher(email EmailSender, sms SMSSender, cfg config.NotificationConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, cfg: cfg, logger: log}
}

// Dispatch sends the rendered message for the event's new status. Silent
// statuses return a skipped result, not an error. A channel failure fails
// the dispatch so the job layer can retry.
func (d *Dispatcher) Dispatch(ctx context.Context, event pipeline.Event, jobTitle, companyName string, to Recipient) (*Result, error) {
	msg, ok := MessageFor(event.NewStatus, jobTitle, companyName)
	if !ok {
		return &Result{Skipped: true}, nil
	}

	res := &Result{Title: msg.Title}

	if d.cfg.Email.Enabled && d.email != nil && to.Email != "" {
		input := &ses.SendEmailInput{
			Source: awssdk.String(d.cfg.Email.FromEmail),
			Destination: &sestypes.Destination{
				ToAddresses: []string{to.Email},
			},
			Message: &sestypes.Message{
				Subject: &sestypes.Content{Data: awssdk.String(msg.Title)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: awssdk.String(msg.Body)},
				},
			},
		}
		if _, err := d.email.SendEmail(ctx, input); err != nil {
			d.logger.Error("email dispatch failed", map[string]interface{}{
				"applicationId": event.ApplicationID,
				"status":        string(event.NewStatus),
				"error":         err.Error(),
			})
			return nil, errors.NewNotificationSendFailedError("email", err)
		}
		res.EmailSent = true
		metrics.NotificationsSent.WithLabelValues("email", string(event.NewStatus)).Inc()
	}

	if d.cfg.SMS.Enabled && d.sms != nil && to.Phone != "" {
		input := &sns.PublishInput{
			PhoneNumber: awssdk.String(to.Phone),
			Message:     awssdk.String(fmt.Sprintf("%s %s", msg.Title, msg.Body)),
		}
		if _, err := d.sms.Publish(ctx, input); err != nil {
			d.logger.Error("sms dispatch failed", map[string]interface{}{
				"applicationId": event.ApplicationID,
				"status":        string(event.NewStatus),
				"error":         err.Error(),
			})
			return nil, errors.NewNotificationSendFailedError("sms", err)
		}
		res.SMSSent = true
		metrics.NotificationsSent.WithLabelValues("sms", string(event.NewStatus)).Inc()
	}

	d.logger.Info("status notification dispatched", map[string]interface{}{
		"applicationId": event.ApplicationID,
		"status":        string(event.NewStatus),
		"emailSent":     res.EmailSent,
		"smsSent":       res.SMSSent,
	})
	return res, nil
}
