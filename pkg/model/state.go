package model

// NotifierState represents the lifecycle state of the exceeded-vehicle notifier.
type NotifierState string

const (
	NotifierStateStopped           NotifierState = "STOPPED"
	NotifierStateRunningActive     NotifierState = "RUNNING_ACTIVE"
	NotifierStateRunningBackground NotifierState = "RUNNING_BACKGROUND"
)

// String returns the string representation of the notifier state.
func (s NotifierState) String() string {
	return string(s)
}

// IsRunning returns true if the notifier has a recurring poll scheduled.
func (s NotifierState) IsRunning() bool {
	switch s {
	case NotifierStateRunningActive, NotifierStateRunningBackground:
		return true
	}
	return false
}

// ValidNotifierTransitions defines the allowed state transitions for the notifier.
var ValidNotifierTransitions = map[NotifierState][]NotifierState{
	NotifierStateStopped:           {NotifierStateRunningActive},
	NotifierStateRunningActive:     {NotifierStateRunningBackground, NotifierStateStopped},
	NotifierStateRunningBackground: {NotifierStateRunningActive, NotifierStateStopped},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s NotifierState) CanTransitionTo(next NotifierState) bool {
	for _, allowed := range ValidNotifierTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AlertState is derived from the most recent exceeded-vehicle set.
type AlertState string

const (
	AlertStateQuiet    AlertState = "QUIET"
	AlertStateAlerting AlertState = "ALERTING"
)

// String returns the string representation of the alert state.
func (s AlertState) String() string {
	return string(s)
}

// AlertStateFor returns ALERTING iff at least one vehicle is over its limit.
func AlertStateFor(vehicles []ExceededVehicle) AlertState {
	if len(vehicles) > 0 {
		return AlertStateAlerting
	}
	return AlertStateQuiet
}
