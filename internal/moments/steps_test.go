package moments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_ForwardOnly(t *testing.T) {
	var got []Step
	p := newProgress(StepFunc(func(s Step) { got = append(got, s) }))

	p.advance(StepUploadingMedia)
	p.advance(StepUploadingMedia)
	p.advance(StepUploadingMoment)
	p.advance(StepProcessingMedia)
	p.advance(StepFinished)
	p.advance(StepUploadingMedia)

	assert.Equal(t, []Step{StepUploadingMedia, StepUploadingMoment, StepFinished}, got)
	assert.Equal(t, stateFinished, p.current)
}

func TestProgress_FailIsTerminalAndSilent(t *testing.T) {
	var got []Step
	p := newProgress(StepFunc(func(s Step) { got = append(got, s) }))

	p.advance(StepUploadingMedia)
	p.fail()
	p.advance(StepProcessingMedia)

	assert.Equal(t, []Step{StepUploadingMedia}, got)
	assert.Equal(t, stateFailed, p.current)
	assert.Equal(t, "FAILED", p.current.String())
}

func TestProgress_FailAfterFinishedIsIgnored(t *testing.T) {
	p := newProgress(nil)
	p.advance(StepFinished)
	p.fail()
	assert.Equal(t, stateFinished, p.current)
}

func TestMultiReporter(t *testing.T) {
	var a, b []Step
	m := MultiReporter{
		StepFunc(func(s Step) { a = append(a, s) }),
		nil,
		StepFunc(func(s Step) { b = append(b, s) }),
	}

	m.OnStep(StepProcessingMedia)

	assert.Equal(t, []Step{StepProcessingMedia}, a)
	assert.Equal(t, []Step{StepProcessingMedia}, b)
}

func TestStepFunc_Nil(t *testing.T) {
	var f StepFunc
	assert.NotPanics(t, func() { f.OnStep(StepFinished) })
}
