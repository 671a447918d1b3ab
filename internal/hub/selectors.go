package hub

import "deposition_dashboard/internal/models"

// Common selectors. Sub-tree selectors compare by pointer, which is valid
// because the store never mutates a published sub-tree.

func SelectView(v View) View { return v }

func SelectState(v View) *models.SystemState { return v.State }

func SelectEquipment(v View) *models.Equipment { return v.State.Equipment }

func SelectMotion(v View) *models.Motion { return v.State.Motion }

func SelectSafety(v View) *models.Safety { return v.State.Safety }

func SelectConnected(v View) bool { return v.Connected }

// Connection is the status slice of a View.
type Connection struct {
	Status    string
	Connected bool
	Error     string
}

func SelectConnection(v View) Connection {
	return Connection{Status: v.Status.String(), Connected: v.Connected, Error: v.Error}
}
