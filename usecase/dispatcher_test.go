package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/agentsync/usecase"
)

func TestDispatcherExecutesRegisteredCommand(t *testing.T) {
	d := usecase.NewDispatcher()
	d.RegisterCommand(usecase.CommandSyncBPartner, func(_ context.Context, payload interface{}) (interface{}, error) {
		return payload.(string) + "!", nil
	})

	out, err := d.ExecuteCommand(context.Background(), usecase.CommandSyncBPartner, "bp-1")
	require.NoError(t, err)
	assert.Equal(t, "bp-1!", out)
	assert.Equal(t, []string{usecase.CommandSyncBPartner}, d.Commands())
}

func TestDispatcherUnknownCommand(t *testing.T) {
	d := usecase.NewDispatcher()
	_, err := d.ExecuteCommand(context.Background(), "contract.sync", nil)
	assert.ErrorIs(t, err, usecase.ErrUnknownCommand)
}

func TestDispatcherRejectsDuplicateRegistration(t *testing.T) {
	d := usecase.NewDispatcher()
	noop := func(context.Context, interface{}) (interface{}, error) { return nil, nil }
	d.RegisterCommand(usecase.CommandSyncBPartner, noop)
	assert.Panics(t, func() { d.RegisterCommand(usecase.CommandSyncBPartner, noop) })
}
