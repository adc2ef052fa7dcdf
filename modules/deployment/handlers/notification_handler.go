package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/smartq/launchpad/modules/deployment/domain/events"
	"github.com/smartq/launchpad/pkg/application"
	"github.com/smartq/launchpad/pkg/configuration"
)

// Notifier delivers workflow notifications to recipients. Delivery transport
// is a collaborator concern; the default implementation only logs.
type Notifier interface {
	SiteTransitioned(event *events.SiteTransitioned)
	SiteArchived(event *events.SiteArchived)
	ProposalSubmitted(event *events.ProposalSubmitted)
	ProposalReviewed(event *events.ProposalReviewed)
}

type NotificationHandler struct {
	notifier Notifier
}

func RegisterNotificationHandlers(app application.Application) {
	handler := &NotificationHandler{
		notifier: &logNotifier{logger: configuration.Use().Logger()},
	}
	app.EventPublisher().Subscribe(handler.onSiteTransitioned)
	app.EventPublisher().Subscribe(handler.onSiteArchived)
	app.EventPublisher().Subscribe(handler.onProposalSubmitted)
	app.EventPublisher().Subscribe(handler.onProposalReviewed)
}

func (h *NotificationHandler) onSiteTransitioned(event *events.SiteTransitioned) {
	h.notifier.SiteTransitioned(event)
}

func (h *NotificationHandler) onSiteArchived(event *events.SiteArchived) {
	h.notifier.SiteArchived(event)
}

func (h *NotificationHandler) onProposalSubmitted(event *events.ProposalSubmitted) {
	h.notifier.ProposalSubmitted(event)
}

func (h *NotificationHandler) onProposalReviewed(event *events.ProposalReviewed) {
	h.notifier.ProposalReviewed(event)
}

type logNotifier struct {
	logger *logrus.Logger
}

func (n *logNotifier) SiteTransitioned(event *events.SiteTransitioned) {
	n.logger.WithFields(logrus.Fields{
		"site_id":    event.SiteID,
		"dimension":  event.Dimension,
		"from":       event.FromStatus,
		"to":         event.ToStatus,
		"overall":    event.OverallStatus,
		"actor_id":   event.ActorID,
		"recipients": len(event.Recipients),
	}).Info("site status changed")
}

func (n *logNotifier) SiteArchived(event *events.SiteArchived) {
	n.logger.WithFields(logrus.Fields{
		"site_id":  event.SiteID,
		"actor_id": event.ActorID,
	}).Info("site archived")
}

func (n *logNotifier) ProposalSubmitted(event *events.ProposalSubmitted) {
	n.logger.WithFields(logrus.Fields{
		"kind":        event.Kind,
		"proposal_id": event.ProposalID,
		"site_id":     event.SiteID,
		"version":     event.Version,
		"recipients":  len(event.Recipients),
	}).Info("proposal submitted")
}

func (n *logNotifier) ProposalReviewed(event *events.ProposalReviewed) {
	n.logger.WithFields(logrus.Fields{
		"kind":        event.Kind,
		"proposal_id": event.ProposalID,
		"site_id":     event.SiteID,
		"version":     event.Version,
		"outcome":     event.Outcome,
		"reviewer_id": event.ReviewerID,
	}).Info("proposal reviewed")
}
