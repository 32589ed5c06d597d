package handler

import (
	"context"
	"testing"
	"time"

	"github.com/Billerens/botmanager-be-sub004/model"
	"github.com/Billerens/botmanager-be-sub004/telegram"
	"github.com/stretchr/testify/require"
)

func TestLocationPromptsAndParks(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	ec := execContext(model.NODE_TYPE_LOCATION, map[string]any{
		"prompt":         "Where are you, {{user.firstName}}?",
		"resultVariable": "coords",
		"timeoutMs":      60000,
	}, true)

	outcome, err := NewLocationHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)

	sent := tg.lastSent()
	require.Equal(t, "Where are you, Ada?", sent.Text)
	markup, ok := sent.Opts.ReplyMarkup.(telegram.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.True(t, markup.Keyboard[0][0].RequestLocation)

	require.NotNil(t, ec.Session.LocationRequest)
	require.Equal(t, "node-1", ec.Session.LocationRequest.NodeId)
	require.Equal(t, int64(60000), ec.Session.LocationRequest.TimeoutMs)
}

func TestLocationStoresCoordinatesAndAdvances(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	ec := execContext(model.NODE_TYPE_LOCATION, map[string]any{
		"resultVariable": "coords",
	}, false)
	ec.Session.LocationRequest = &model.LocationRequest{
		NodeId:    "node-1",
		Timestamp: time.Now(),
		TimeoutMs: 60000,
	}
	ec.Update.Kind = model.UPDATE_LOCATION
	ec.Update.Location = &model.Location{Latitude: 52.52, Longitude: 13.405}

	outcome, err := NewLocationHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Nil(t, ec.Session.LocationRequest)
	require.Equal(t, map[string]any{
		"latitude":  52.52,
		"longitude": 13.405,
	}, ec.Session.Variables["coords"])
	require.Empty(t, tg.sent)
}

func TestLocationNonLocationEventClearsMarkerAndAdvances(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	ec := execContext(model.NODE_TYPE_LOCATION, map[string]any{
		"resultVariable": "coords",
	}, false)
	ec.Session.LocationRequest = &model.LocationRequest{
		NodeId:    "node-1",
		Timestamp: time.Now(),
		TimeoutMs: 60000,
	}
	ec.Update.Text = "never mind"

	outcome, err := NewLocationHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Nil(t, ec.Session.LocationRequest)
	require.NotContains(t, ec.Session.Variables, "coords")
}

func TestLocationExpiredMarkerAdvancesWithoutResult(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	ec := execContext(model.NODE_TYPE_LOCATION, map[string]any{
		"resultVariable": "coords",
	}, false)
	ec.Session.LocationRequest = &model.LocationRequest{
		NodeId:    "node-1",
		Timestamp: time.Now().Add(-time.Hour),
		TimeoutMs: 1000,
	}
	ec.Update.Kind = model.UPDATE_LOCATION
	ec.Update.Location = &model.Location{Latitude: 1, Longitude: 2}

	outcome, err := NewLocationHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.True(t, outcome.Advance)
	require.Nil(t, ec.Session.LocationRequest)
	require.NotContains(t, ec.Session.Variables, "coords")
}

func TestLocationMarkerForOtherNodeRePrompts(t *testing.T) {
	tg := &fakeTelegram{}
	deps, _ := newTestDeps(tg)
	ec := execContext(model.NODE_TYPE_LOCATION, map[string]any{}, false)
	ec.Session.LocationRequest = &model.LocationRequest{
		NodeId:    "elsewhere",
		Timestamp: time.Now(),
	}

	outcome, err := NewLocationHandler(deps).Execute(context.Background(), ec)
	require.NoError(t, err)
	require.False(t, outcome.Advance)
	require.Equal(t, "Please share your location.", tg.lastSent().Text)
	require.Equal(t, "node-1", ec.Session.LocationRequest.NodeId)
}
