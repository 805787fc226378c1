package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"rentloop-backend/internal/domain"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/utils"
)

// message is a rendered notification, independent of the delivery channel.
type message struct {
	to      *domain.User
	subject string
	body    string
}

func rentalSummary(rental *domain.Rental) string {
	var titles []string
	for _, line := range rental.Items {
		if line.Item != nil {
			titles = append(titles, line.Item.Title)
		}
	}
	items := fmt.Sprintf("%d item(s)", len(rental.Items))
	if len(titles) > 0 {
		items = strings.Join(titles, ", ")
	}
	return fmt.Sprintf("%s from %s to %s\nTotal price: %d\nDeposit: %d",
		items, utils.FormatDate(rental.StartDate), utils.FormatDate(rental.EndDate), rental.TotalPrice, rental.TotalDeposit)
}

func requestMessage(lender, lendee *domain.User, rental *domain.Rental) message {
	return message{
		to:      lender,
		subject: "New rental request",
		body: fmt.Sprintf("Hello %s,\n\n%s wants to rent:\n%s\n\nOpen the app to approve or reject the request.\n\nThe Rentloop Team",
			lender.Name, lendee.Name, rentalSummary(rental)),
	}
}

func approvalMessage(lendee, lender *domain.User, rental *domain.Rental) message {
	return message{
		to:      lendee,
		subject: "Your rental was approved",
		body: fmt.Sprintf("Hello %s,\n\n%s approved your rental:\n%s\n\n%d has been charged to your balance.\n\nThe Rentloop Team",
			lendee.Name, lender.Name, rentalSummary(rental), rental.AmountDue()),
	}
}

func rejectionMessage(lendee, lender *domain.User, rental *domain.Rental) message {
	body := fmt.Sprintf("Hello %s,\n\n%s declined your rental:\n%s", lendee.Name, lender.Name, rentalSummary(rental))
	if rental.RejectionReason != nil {
		body += fmt.Sprintf("\n\nReason: %s", *rental.RejectionReason)
	}
	return message{
		to:      lendee,
		subject: "Your rental was declined",
		body:    body + "\n\nThe Rentloop Team",
	}
}

func completionMessage(lendee, lender *domain.User, rental *domain.Rental) message {
	return message{
		to:      lendee,
		subject: "Rental completed",
		body: fmt.Sprintf("Hello %s,\n\nYour rental from %s is complete:\n%s\n\nThanks for using Rentloop.\n\nThe Rentloop Team",
			lendee.Name, lender.Name, rentalSummary(rental)),
	}
}

type sendGridEmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) send(ctx context.Context, m message) error {
	logger.ExternalServiceCall("sendgrid", "send", "to", m.to.ID, "subject", m.subject)
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(m.to.Name, m.to.Email)
	email := mail.NewSingleEmail(from, m.subject, recipient, m.body, "")

	response, err := s.client.SendWithContext(ctx, email)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *sendGridEmailService) SendRentalRequestNotification(ctx context.Context, lender, lendee *domain.User, rental *domain.Rental) error {
	return s.send(ctx, requestMessage(lender, lendee, rental))
}

func (s *sendGridEmailService) SendRentalApprovalNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, approvalMessage(lendee, lender, rental))
}

func (s *sendGridEmailService) SendRentalRejectionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, rejectionMessage(lendee, lender, rental))
}

func (s *sendGridEmailService) SendRentalCompletionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, completionMessage(lendee, lender, rental))
}

type smtpEmailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPEmailService delivers notifications through a plain SMTP relay.
func NewSMTPEmailService(host string, port int, username, password, from string) EmailService {
	return &smtpEmailService{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpEmailService) compose(m message) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetAddressHeader("To", m.to.Email, m.to.Name)
	msg.SetHeader("Subject", m.subject)
	msg.SetBody("text/plain", m.body)
	return msg
}

func (s *smtpEmailService) send(ctx context.Context, m message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.ExternalServiceCall("smtp", "send", "to", m.to.ID, "subject", m.subject)
	err := s.dialer.DialAndSend(s.compose(m))
	logger.ExternalServiceResult("smtp", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

func (s *smtpEmailService) SendRentalRequestNotification(ctx context.Context, lender, lendee *domain.User, rental *domain.Rental) error {
	return s.send(ctx, requestMessage(lender, lendee, rental))
}

func (s *smtpEmailService) SendRentalApprovalNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, approvalMessage(lendee, lender, rental))
}

func (s *smtpEmailService) SendRentalRejectionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, rejectionMessage(lendee, lender, rental))
}

func (s *smtpEmailService) SendRentalCompletionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(ctx, completionMessage(lendee, lender, rental))
}

// logEmailService writes notifications to the log instead of delivering
// them. Used when no e-mail provider is configured.
type logEmailService struct{}

func NewLogEmailService() EmailService {
	return logEmailService{}
}

func (logEmailService) send(m message) error {
	logger.Info("Email notification", "to", m.to.ID, "subject", m.subject)
	logger.Debug("Email body", "to", m.to.ID, "body", m.body)
	return nil
}

func (s logEmailService) SendRentalRequestNotification(ctx context.Context, lender, lendee *domain.User, rental *domain.Rental) error {
	return s.send(requestMessage(lender, lendee, rental))
}

func (s logEmailService) SendRentalApprovalNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(approvalMessage(lendee, lender, rental))
}

func (s logEmailService) SendRentalRejectionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(rejectionMessage(lendee, lender, rental))
}

func (s logEmailService) SendRentalCompletionNotification(ctx context.Context, lendee, lender *domain.User, rental *domain.Rental) error {
	return s.send(completionMessage(lendee, lender, rental))
}
