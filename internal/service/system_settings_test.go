package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/carter2099/best-bets/internal/models"
	"github.com/carter2099/best-bets/internal/repository/memory"
)

func TestEnsureDefaultSwitchesKeepsOperatorChoice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &SystemSettingsService{Repo: store}

	require.NoError(t, svc.SetEnabled(ctx, FeatureDailyScan, false))
	require.NoError(t, svc.EnsureDefaultSwitches(ctx))

	assert.True(t, svc.IsEnabled(ctx, FeaturePipelineAutostart, false))
	assert.False(t, svc.IsEnabled(ctx, FeatureDailyScan, true))
}

func TestIsEnabledFallbacks(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := &SystemSettingsService{Repo: store}

	assert.True(t, svc.IsEnabled(ctx, "feature.unknown", true))
	assert.False(t, svc.IsEnabled(ctx, "  ", false))

	require.NoError(t, store.UpsertSystemSetting(ctx, &models.SystemSetting{Key: "feature.broken", Value: datatypes.JSON(`"yes"`)}))
	assert.True(t, svc.IsEnabled(ctx, "feature.broken", true))

	var nilSvc *SystemSettingsService
	assert.True(t, nilSvc.IsEnabled(ctx, FeatureDailyScan, true))
	assert.NoError(t, nilSvc.SetEnabled(ctx, FeatureDailyScan, true))
	assert.NoError(t, nilSvc.EnsureDefaultSwitches(ctx))
}
