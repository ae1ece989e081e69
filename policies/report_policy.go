// Package policies decides which actor may do what with a damage report.
// Every check is evaluated against the report as currently stored; results are never cached.
package policies

import "damagereport-be/models"

// CanCreate: only drivers file damage reports.
func CanCreate(actor models.Actor) bool {
	return actor.Role.IsDriver()
}

// CanView: the owner can view their own reports.
func CanView(actor models.Actor, report *models.DamageReport) bool {
	return isOwner(actor, report)
}

// CanModify covers update, delete and submit: owner only, Draft only.
func CanModify(actor models.Actor, report *models.DamageReport) bool {
	return isOwner(actor, report) && report.Status == models.StatusDraft
}

// CanApprove: supervisors approve reports waiting in Submitted.
func CanApprove(actor models.Actor, report *models.DamageReport) bool {
	return report != nil && actor.Role.IsSupervisor() && report.Status == models.StatusSubmitted
}

func isOwner(actor models.Actor, report *models.DamageReport) bool {
	return report != nil && !actor.ID.IsZero() && report.IsOwnedBy(actor.ID)
}
