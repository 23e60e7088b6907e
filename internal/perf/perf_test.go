package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTimerIsNoOp(t *testing.T) {
	timer := New(false)
	timer.Begin("#BUILD")
	time.Sleep(time.Millisecond)
	timer.End("#BUILD")
	assert.Empty(t, timer.Timings())
}

func TestEnabledTimerRecordsDuration(t *testing.T) {
	timer := New(true)
	timer.Measure("##graphBuild", func() {
		time.Sleep(2 * time.Millisecond)
	})
	timings := timer.Timings()
	require.Contains(t, timings, "##graphBuild")
	assert.Greater(t, timings["##graphBuild"], 0.0)
}

func TestMeasureErrReturnsError(t *testing.T) {
	timer := New(true)
	sentinel := errors.New("boom")
	err := timer.MeasureErr("##buildStart", func() error { return sentinel })
	assert.Equal(t, sentinel, err)
	assert.Contains(t, timer.Timings(), "##buildStart")
}

func TestNilTimerIsSafe(t *testing.T) {
	var timer *Timer
	assert.NotPanics(t, func() {
		timer.Begin("#BUILD")
		timer.End("#BUILD")
	})
	assert.Empty(t, timer.Timings())
}

func TestRepeatedLabelAccumulates(t *testing.T) {
	timer := New(true)
	timer.Measure("##render", func() { time.Sleep(time.Millisecond) })
	timer.Measure("##render", func() { time.Sleep(time.Millisecond) })
	first := timer.Timings()["##render"]
	assert.Greater(t, first, 1.0)
}
