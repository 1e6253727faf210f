package conversation

// Step is the position of a session in the form.
type Step int

const (
	StepIdle Step = iota
	StepLanguage
	StepCountry
	StepService
	StepOption
	StepObjectType
	StepArea
	StepFloors
	StepSketch
	StepContact
	StepConfirm
	// StepSent is reported when an inquiry leaves the form. Sessions never rest in it.
	StepSent
)

var stepNames = [...]string{
	StepIdle:       "idle",
	StepLanguage:   "language",
	StepCountry:    "country",
	StepService:    "service",
	StepOption:     "option",
	StepObjectType: "object_type",
	StepArea:       "area",
	StepFloors:     "floors",
	StepSketch:     "sketch",
	StepContact:    "contact",
	StepConfirm:    "confirm",
	StepSent:       "sent",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// FunnelSteps lists the steps counted in funnel statistics, in flow order.
var FunnelSteps = []Step{
	StepLanguage, StepCountry, StepService, StepOption, StepObjectType,
	StepArea, StepFloors, StepSketch, StepContact, StepConfirm, StepSent,
}

// expectsButton reports whether the step is answered with an inline button.
func (s Step) expectsButton() bool {
	switch s {
	case StepLanguage, StepCountry, StepService, StepOption, StepConfirm:
		return true
	}
	return false
}
