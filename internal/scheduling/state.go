package scheduling

import "github.com/nutripanel/nutripanel-api/internal/models"

// transitions is the closed table of legal appointment state changes.
// The happy path is scheduled -> confirmed -> in_progress -> completed with
// one skip allowed, scheduled -> completed for walk-in completion; cancelled
// and no_show are reachable from any non-terminal state.
var transitions = map[models.AppointmentState][]models.AppointmentState{
	models.AppointmentStateScheduled: {
		models.AppointmentStateConfirmed,
		models.AppointmentStateCompleted,
		models.AppointmentStateCancelled,
		models.AppointmentStateNoShow,
	},
	models.AppointmentStateConfirmed: {
		models.AppointmentStateInProgress,
		models.AppointmentStateCancelled,
		models.AppointmentStateNoShow,
	},
	models.AppointmentStateInProgress: {
		models.AppointmentStateCompleted,
		models.AppointmentStateCancelled,
		models.AppointmentStateNoShow,
	},
	models.AppointmentStateCompleted: {},
	models.AppointmentStateCancelled: {},
	models.AppointmentStateNoShow:    {},
}

// CanTransition reports whether moving an appointment from one state to
// another is allowed by the state machine.
func CanTransition(from, to models.AppointmentState) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
