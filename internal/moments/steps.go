package moments

// Step is a phase of the moment creation workflow reported to callers.
type Step string

const (
	StepUploadingMedia  Step = "UPLOADING_MEDIA"
	StepProcessingMedia Step = "PROCESSING_MEDIA"
	StepUploadingMoment Step = "UPLOADING_MOMENT"
	StepFinished        Step = "FINISHED"
)

func (s Step) String() string {
	return string(s)
}

// StepReporter receives phase transitions synchronously, once per transition.
type StepReporter interface {
	OnStep(step Step)
}

// StepFunc adapts a plain function to StepReporter.
type StepFunc func(step Step)

func (f StepFunc) OnStep(step Step) {
	if f != nil {
		f(step)
	}
}

// MultiReporter forwards every step to each reporter in order.
type MultiReporter []StepReporter

func (m MultiReporter) OnStep(step Step) {
	for _, r := range m {
		if r != nil {
			r.OnStep(step)
		}
	}
}

type state int

const (
	stateInit state = iota
	stateUploadingMedia
	stateProcessingMedia
	stateUploadingMoment
	stateFinished
	stateFailed
)

var stateNames = map[state]string{
	stateInit:            "INIT",
	stateUploadingMedia:  "UPLOADING_MEDIA",
	stateProcessingMedia: "PROCESSING_MEDIA",
	stateUploadingMoment: "UPLOADING_MOMENT",
	stateFinished:        "FINISHED",
	stateFailed:          "FAILED",
}

func (s state) String() string {
	return stateNames[s]
}

func (s state) terminal() bool {
	return s == stateFinished || s == stateFailed
}

// progress tracks a single run through the state machine. Transitions only
// move forward; FAILED is entered at most once and is never reported.
type progress struct {
	current  state
	reporter StepReporter
}

func newProgress(reporter StepReporter) *progress {
	return &progress{current: stateInit, reporter: reporter}
}

func (p *progress) advance(step Step) {
	next := stateForStep(step)
	if p.current.terminal() || next <= p.current {
		return
	}
	p.current = next
	if p.reporter != nil {
		p.reporter.OnStep(step)
	}
}

func (p *progress) fail() {
	if p.current.terminal() {
		return
	}
	p.current = stateFailed
}

func stateForStep(step Step) state {
	switch step {
	case StepUploadingMedia:
		return stateUploadingMedia
	case StepProcessingMedia:
		return stateProcessingMedia
	case StepUploadingMoment:
		return stateUploadingMoment
	case StepFinished:
		return stateFinished
	default:
		return stateInit
	}
}
