package dispatch

import (
	"fmt"

	"github.com/truckflow/dispatch-backend/internal/models"
)

// Actor identifies who requested a driver transition. A zero AdminID means
// the driver acted on their own behalf; otherwise the change was made by an
// admin and notifications say so.
type Actor struct {
	DriverID  uint
	AdminID   uint
	AdminName string
}

// IsAdmin reports whether the transition was admin-initiated
func (a Actor) IsAdmin() bool {
	return a.AdminID != 0
}

func driverName(dd models.DispatchDriver) string {
	if dd.Driver != nil && dd.Driver.Username != "" {
		return dd.Driver.Username
	}
	return fmt.Sprintf("driver #%d", dd.DriverID)
}

func customerNote(d *models.Dispatch, ntype, priority, title, body string) models.Notification {
	customerID := d.CustomerID
	return models.Notification{
		Audience:    models.AudienceCustomer,
		RecipientID: &customerID,
		Type:        ntype,
		Priority:    priority,
		Title:       title,
		Body:        body,
		DispatchID:  d.ID,
	}
}

func driverNote(d *models.Dispatch, driverID uint, ntype, priority, title, body string) models.Notification {
	recipient := driverID
	return models.Notification{
		Audience:    models.AudienceDriver,
		RecipientID: &recipient,
		Type:        ntype,
		Priority:    priority,
		Title:       title,
		Body:        body,
		DispatchID:  d.ID,
		DriverID:    driverID,
	}
}

func adminNote(d *models.Dispatch, driverID uint, ntype, priority, title, body string) models.Notification {
	return models.Notification{
		Audience:   models.AudienceAdmin,
		Type:       ntype,
		Priority:   priority,
		Title:      title,
		Body:       body,
		DispatchID: d.ID,
		DriverID:   driverID,
	}
}

// AggregateFanout builds the notifications for an aggregate status change.
// Only the two externally meaningful transitions produce output; an
// aggregate moving to assigned is announced at assignment time instead.
func AggregateFanout(d *models.Dispatch, drivers []models.DispatchDriver, newStatus string) []models.Notification {
	var notes []models.Notification

	switch newStatus {
	case models.DispatchStatusInProgress:
		notes = append(notes, customerNote(d,
			models.NotificationDispatchInProgress, models.PriorityHigh,
			"Trip In Progress",
			fmt.Sprintf("Your trip %s is now in progress", d.DispatchCode)))
		for _, dd := range drivers {
			notes = append(notes, driverNote(d, dd.DriverID,
				models.NotificationDispatchInProgress, models.PriorityNormal,
				"Dispatch In Progress",
				fmt.Sprintf("Dispatch %s is now in progress", d.DispatchCode)))
		}
		notes = append(notes, adminNote(d, 0,
			models.NotificationDispatchInProgress, models.PriorityNormal,
			"Dispatch In Progress",
			fmt.Sprintf("Dispatch %s moved to in progress", d.DispatchCode)))

	case models.DispatchStatusCompleted:
		notes = append(notes, customerNote(d,
			models.NotificationDispatchCompleted, models.PriorityHigh,
			"Trip Completed",
			fmt.Sprintf("Your trip %s has been completed", d.DispatchCode)))
		for _, dd := range drivers {
			notes = append(notes, driverNote(d, dd.DriverID,
				models.NotificationDispatchCompleted, models.PriorityNormal,
				"Dispatch Completed",
				fmt.Sprintf("Dispatch %s has been completed", d.DispatchCode)))
		}
		notes = append(notes, adminNote(d, 0,
			models.NotificationDispatchCompleted, models.PriorityNormal,
			"Dispatch Completed",
			fmt.Sprintf("Dispatch %s completed", d.DispatchCode)))
	}

	return notes
}

// DriverTransitionFanout builds the targeted notifications for one driver's
// transition: customer, the transitioning driver, every co-assigned driver,
// and one admin feed entry. Wording and priority depend on whether the
// change was admin-initiated.
func DriverTransitionFanout(d *models.Dispatch, drivers []models.DispatchDriver, dd models.DispatchDriver, actor Actor) []models.Notification {
	var ntype, verb string
	priority := models.PriorityNormal

	switch dd.Status {
	case models.DriverStatusInProgress:
		ntype = models.NotificationTripStarted
		verb = "started"
		if actor.IsAdmin() {
			ntype = models.NotificationTripStartedAdmin
			priority = models.PriorityHigh
		}
	case models.DriverStatusCompleted:
		ntype = models.NotificationTripCompleted
		verb = "completed"
		if actor.IsAdmin() {
			priority = models.PriorityHigh
		}
	default:
		return nil
	}

	name := driverName(dd)
	byWhom := ""
	if actor.IsAdmin() {
		byWhom = fmt.Sprintf(" by admin %s", actor.AdminName)
	}

	notes := []models.Notification{
		customerNote(d, ntype, priority,
			"Trip Update",
			fmt.Sprintf("%s %s their leg of trip %s%s", name, verb, d.DispatchCode, byWhom)),
		driverNote(d, dd.DriverID, ntype, priority,
			"Trip Update",
			fmt.Sprintf("Your leg of dispatch %s was marked %s%s", d.DispatchCode, dd.Status, byWhom)),
	}

	for _, other := range drivers {
		if other.DriverID == dd.DriverID {
			continue
		}
		notes = append(notes, driverNote(d, other.DriverID, ntype, models.PriorityNormal,
			"Trip Update",
			fmt.Sprintf("%s %s their leg of dispatch %s", name, verb, d.DispatchCode)))
	}

	notes = append(notes, adminNote(d, dd.DriverID, ntype, priority,
		"Driver Trip Update",
		fmt.Sprintf("%s %s their leg of dispatch %s%s", name, verb, d.DispatchCode, byWhom)))

	return notes
}

// ForceStartFanout builds the notifications for an admin force-start: one
// for the customer and one per driver, all tagged as admin-initiated.
func ForceStartFanout(d *models.Dispatch, drivers []models.DispatchDriver, adminName string) []models.Notification {
	notes := []models.Notification{
		customerNote(d,
			models.NotificationTripStartedAdmin, models.PriorityHigh,
			"Trip Started",
			fmt.Sprintf("Your trip %s was started by admin %s", d.DispatchCode, adminName)),
	}
	for _, dd := range drivers {
		notes = append(notes, driverNote(d, dd.DriverID,
			models.NotificationTripStartedAdmin, models.PriorityHigh,
			"Trip Started",
			fmt.Sprintf("Admin %s started your leg of dispatch %s", adminName, d.DispatchCode)))
	}
	return notes
}
