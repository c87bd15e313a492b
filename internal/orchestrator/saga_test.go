package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func step(name string, execErr error, trace *[]string, compErr error) Step {
	return FuncStep{
		StepName: name,
		ExecuteFn: func(ctx context.Context) error {
			*trace = append(*trace, "exec:"+name)
			return execErr
		},
		CompensateFn: func(ctx context.Context) error {
			*trace = append(*trace, "comp:"+name)
			return compErr
		},
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	var trace []string
	o := New(discard(),
		step("a", nil, &trace, nil),
		step("b", nil, &trace, nil),
	)
	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, []string{"exec:a", "exec:b"}, trace)
}

func TestRun_CompensatesCompletedStepsInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("charge declined")
	o := New(discard(),
		step("reserve-p1", nil, &trace, nil),
		step("reserve-p2", nil, &trace, nil),
		step("charge", boom, &trace, nil),
	)

	err := o.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{
		"exec:reserve-p1",
		"exec:reserve-p2",
		"exec:charge",
		"comp:reserve-p2",
		"comp:reserve-p1",
	}, trace)
}

func TestRun_CompensationFailureDoesNotMaskCause(t *testing.T) {
	var trace []string
	boom := errors.New("payment down")
	compBoom := errors.New("release failed")
	o := New(discard(),
		step("reserve", nil, &trace, compBoom),
		step("charge", boom, &trace, nil),
	)

	err := o.Run(context.Background())
	require.ErrorIs(t, err, boom)

	var sagaErr *SagaError
	require.ErrorAs(t, err, &sagaErr)
	require.Len(t, sagaErr.CompensationFailures, 1)
	assert.Equal(t, apperr.CodeCompensationFailure, apperr.CodeOf(sagaErr.CompensationFailures[0]))
	assert.ErrorIs(t, sagaErr.CompensationFailures[0], compBoom)
}

func TestRun_FailedStepIsNotCompensated(t *testing.T) {
	var trace []string
	o := New(discard(),
		step("only", errors.New("nope"), &trace, nil),
	)

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"exec:only"}, trace)
}

func TestRun_RecoversStepPanic(t *testing.T) {
	var trace []string
	o := New(discard(),
		step("reserve", nil, &trace, nil),
		FuncStep{
			StepName:  "explode",
			ExecuteFn: func(ctx context.Context) error { panic("kaboom") },
		},
	)

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(errors.Unwrap(err)))
	assert.Contains(t, trace, "comp:reserve")
}
