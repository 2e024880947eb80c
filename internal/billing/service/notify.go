package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/smallbiznis/jobboard/internal/billing/domain"
	"github.com/smallbiznis/jobboard/internal/notification"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
)

const fallbackEmployerName = "your company"

const (
	kindTrialStarted     = "trial_started"
	kindPremiumActivated = "premium_activated"
	kindRenewalWarning   = "renewal_warning"
	kindExpired          = "premium_expired"
)

var mailTemplates = template.Must(template.New("billing").Parse(`
{{define "trial_started"}}<p>Hello {{.Employer}} team,</p>
<p>Your free trial is now active until <b>{{.Date}}</b>.</p>
<p>Post jobs and explore every premium feature before the trial ends.</p>
{{if .Link}}<p><a href="{{.Link}}">Open billing</a></p>{{end}}
<p>Billing team</p>{{end}}

{{define "premium_activated"}}<p>Hello {{.Employer}} team,</p>
<p>Thank you, your payment was received. Premium is active until <b>{{.Date}}</b>.</p>
{{if .Link}}<p><a href="{{.Link}}">Open billing</a></p>{{end}}
<p>Billing team</p>{{end}}

{{define "renewal_warning"}}<p>Hello {{.Employer}} team,</p>
<p>This is a reminder that your <b>{{.Kind}}</b> ends <b>{{.Left}}</b> (date: {{.Date}}).</p>
<p>Renew now to avoid any interruption.</p>
{{if .Link}}<p><a href="{{.Link}}">Renew</a></p>{{end}}
<p>Billing team</p>{{end}}

{{define "premium_expired"}}<p>Hello {{.Employer}} team,</p>
<p>Your premium access has expired. Job postings stay saved but premium features are paused.</p>
{{if .Link}}<p><a href="{{.Link}}">Renew</a></p>{{end}}
<p>Billing team</p>{{end}}
`))

type mailData struct {
	Employer string
	Kind     string
	Left     string
	Date     string
	Link     string
}

type renderedMail struct {
	Kind    string
	Subject string
	HTML    string
	Text    string
}

func (s *Service) billingLink() string {
	if s.frontendOrigin == "" {
		return ""
	}
	return s.frontendOrigin + "/employer/billing"
}

func (s *Service) formatDate(t time.Time) string {
	return t.In(s.location()).Format("2 January 2006")
}

func employerLabel(name string) string {
	if name == "" {
		return fallbackEmployerName
	}
	return name
}

func render(kind string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, kind, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Service) trialStartedMail(name string, endsAt time.Time) (renderedMail, error) {
	data := mailData{Employer: employerLabel(name), Date: s.formatDate(endsAt), Link: s.billingLink()}
	html, err := render(kindTrialStarted, data)
	if err != nil {
		return renderedMail{}, err
	}
	return renderedMail{
		Kind:    kindTrialStarted,
		Subject: fmt.Sprintf("Your trial for %s is active", data.Employer),
		HTML:    html,
		Text:    fmt.Sprintf("Your free trial is active until %s.", data.Date),
	}, nil
}

func (s *Service) premiumActivatedMail(name string, until time.Time) (renderedMail, error) {
	data := mailData{Employer: employerLabel(name), Date: s.formatDate(until), Link: s.billingLink()}
	html, err := render(kindPremiumActivated, data)
	if err != nil {
		return renderedMail{}, err
	}
	return renderedMail{
		Kind:    kindPremiumActivated,
		Subject: "Payment received: Premium is active",
		HTML:    html,
		Text:    fmt.Sprintf("Premium is active until %s.", data.Date),
	}, nil
}

func (s *Service) renewalWarningMail(name string, kind domain.WarningKind, target time.Time) (renderedMail, error) {
	now := s.now()
	left := domain.LeftDaysText(&target, now, s.location())
	data := mailData{
		Employer: employerLabel(name),
		Kind:     string(kind),
		Left:     left,
		Date:     s.formatDate(target),
		Link:     s.billingLink(),
	}
	html, err := render(kindRenewalWarning, data)
	if err != nil {
		return renderedMail{}, err
	}
	return renderedMail{
		Kind:    kindRenewalWarning,
		Subject: fmt.Sprintf("Reminder: %s for %s ends %s", kind, data.Employer, left),
		HTML:    html,
		Text:    fmt.Sprintf("Your %s ends %s (%s).", kind, left, data.Date),
	}, nil
}

func (s *Service) expiredMail(name string) (renderedMail, error) {
	data := mailData{Employer: employerLabel(name), Link: s.billingLink()}
	html, err := render(kindExpired, data)
	if err != nil {
		return renderedMail{}, err
	}
	return renderedMail{
		Kind:    kindExpired,
		Subject: fmt.Sprintf("Premium for %s has expired", data.Employer),
		HTML:    html,
		Text:    "Your premium access has expired.",
	}, nil
}

func (s *Service) notifyTrialStarted(ctx context.Context, employerID snowflake.ID, endsAt time.Time) {
	s.notifyEmployer(ctx, employerID, func(name string) (renderedMail, error) {
		return s.trialStartedMail(name, endsAt)
	})
}

func (s *Service) notifyPremiumActivated(ctx context.Context, employerID snowflake.ID, until time.Time) {
	s.notifyEmployer(ctx, employerID, func(name string) (renderedMail, error) {
		return s.premiumActivatedMail(name, until)
	})
}

// notifyEmployer never returns an error: billing state is already committed when it runs.
func (s *Service) notifyEmployer(ctx context.Context, employerID snowflake.ID, build func(name string) (renderedMail, error)) {
	log := obslogger.WithContext(ctx, s.log).With(zap.String("employer_id", employerID.String()))

	recipients, err := s.directory.GetAdminEmails(ctx, employerID)
	if err != nil {
		log.Warn("resolve admin emails failed", zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		log.Warn("no admin recipients, notification skipped")
		return
	}

	name := ""
	if emp, err := s.employerRepo.FindByID(ctx, s.db, employerID); err == nil && emp != nil {
		name = emp.DisplayName
	}

	mail, err := build(name)
	if err != nil {
		log.Error("render notification failed", zap.Error(err))
		return
	}
	if _, err := s.send(ctx, recipients, mail); err != nil {
		log.Warn("billing notification not delivered", zap.String("kind", mail.Kind), zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, to []string, mail renderedMail) (notification.Receipt, error) {
	if s.sender == nil {
		return notification.Receipt{}, notification.ErrNotConfigured
	}
	return s.sender.Send(ctx, notification.Message{
		To:      to,
		Subject: mail.Subject,
		HTML:    mail.HTML,
		Text:    mail.Text,
		Kind:    mail.Kind,
	})
}

func (s *Service) SendPreviewMail(ctx context.Context, employerID snowflake.ID, kind domain.PreviewMailKind) (domain.PreviewMailResult, error) {
	if employerID == 0 {
		return domain.PreviewMailResult{}, domain.ErrInvalidEmployerID
	}
	emp, err := s.employerRepo.FindByID(ctx, s.db, employerID)
	if err != nil {
		return domain.PreviewMailResult{}, err
	}
	if emp == nil {
		return domain.PreviewMailResult{}, domain.ErrEmployerNotFound
	}

	admins, err := s.employerRepo.ListAdmins(ctx, s.db, employerID)
	if err != nil {
		return domain.PreviewMailResult{}, err
	}
	to := ""
	for _, a := range admins {
		if a.IsOwner && notification.LooksLikeEmail(a.Email) {
			to = a.Email
			break
		}
	}
	if to == "" {
		for _, a := range admins {
			if notification.LooksLikeEmail(a.Email) {
				to = a.Email
				break
			}
		}
	}
	if to == "" {
		return domain.PreviewMailResult{}, domain.ErrNoRecipients
	}

	now := s.now()
	var mail renderedMail
	switch kind {
	case domain.PreviewMailTrial:
		mail, err = s.trialStartedMail(emp.DisplayName, now.AddDate(0, 0, 14))
	case domain.PreviewMailPaid:
		mail, err = s.premiumActivatedMail(emp.DisplayName, now.AddDate(0, 1, 0))
	case domain.PreviewMailWarn3:
		mail, err = s.renewalWarningMail(emp.DisplayName, domain.WarningKindPremium, now.AddDate(0, 0, 3))
	case domain.PreviewMailWarn1:
		mail, err = s.renewalWarningMail(emp.DisplayName, domain.WarningKindPremium, now.AddDate(0, 0, 1))
	case domain.PreviewMailExpired:
		mail, err = s.expiredMail(emp.DisplayName)
	default:
		return domain.PreviewMailResult{}, domain.ErrInvalidPreviewKind
	}
	if err != nil {
		return domain.PreviewMailResult{}, err
	}

	receipt, err := s.send(ctx, []string{to}, mail)
	if err != nil {
		return domain.PreviewMailResult{}, err
	}
	return domain.PreviewMailResult{SentTo: receipt.Recipients, Subject: mail.Subject}, nil
}
