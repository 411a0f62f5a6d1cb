package generation

import (
	"context"
	"fmt"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titlegen-admin/internal/generation/client"
	"titlegen-admin/internal/shared/model"
	"titlegen-admin/internal/shared/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType model.ErrorType
		wantSev  model.ErrorSeverity
	}{
		{
			name:     "guardrail",
			err:      fmt.Errorf("blocked: %w", client.ErrGuardrail),
			wantType: model.ErrTypeGuardrail,
			wantSev:  model.SeverityHigh,
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("call timed out: %w", context.DeadlineExceeded),
			wantType: model.ErrTypeTimeout,
			wantSev:  model.SeverityHigh,
		},
		{
			name:     "resource limit",
			err:      fmt.Errorf("rate limited: %w", errdefs.ErrResourceExhausted),
			wantType: model.ErrTypeResourceLimit,
			wantSev:  model.SeverityHigh,
		},
		{
			name:     "validation",
			err:      fmt.Errorf("bad input: %w", errdefs.ErrInvalidArgument),
			wantType: model.ErrTypeValidation,
			wantSev:  model.SeverityLow,
		},
		{
			name:     "authorization",
			err:      fmt.Errorf("no key: %w", errdefs.ErrUnauthenticated),
			wantType: model.ErrTypeAuthorization,
			wantSev:  model.SeverityMedium,
		},
		{
			name:     "persistence",
			err:      fmt.Errorf("write failed: %w", storage.ErrConflict),
			wantType: model.ErrTypePersistence,
			wantSev:  model.SeverityMedium,
		},
		{
			name:     "default is model invocation",
			err:      fmt.Errorf("something odd happened"),
			wantType: model.ErrTypeModelInvocation,
			wantSev:  model.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, tt.wantType, ce.Type)
			assert.Equal(t, tt.wantSev, ce.Severity)
			assert.Equal(t, tt.err.Error(), ce.Message)
		})
	}

	assert.Nil(t, Classify(nil))
}

func TestClassifyDetails(t *testing.T) {
	cause := fmt.Errorf("connection reset by peer")
	ce := Classify(fmt.Errorf("request failed: %w", cause))
	assert.Equal(t, "connection reset by peer", ce.Details)
}

func TestShouldNotify(t *testing.T) {
	assert.False(t, ShouldNotify(nil))

	// HIGH 级别必告警
	assert.True(t, ShouldNotify(&model.ClassifiedError{
		Type: model.ErrTypeModelInvocation, Severity: model.SeverityHigh,
	}))

	// 高影响分类即使级别不是 HIGH 也告警
	assert.True(t, ShouldNotify(&model.ClassifiedError{
		Type: model.ErrTypeTimeout, Severity: model.SeverityMedium,
	}))

	// 普通 MEDIUM/LOW 不告警
	assert.False(t, ShouldNotify(&model.ClassifiedError{
		Type: model.ErrTypeValidation, Severity: model.SeverityLow,
	}))
	assert.False(t, ShouldNotify(&model.ClassifiedError{
		Type: model.ErrTypeModelInvocation, Severity: model.SeverityMedium,
	}))
}
