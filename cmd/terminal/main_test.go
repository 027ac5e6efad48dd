package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
	"github.com/greatgiftheist/agent-hq/internal/store/jsonfile"
)

func TestRunStopsOnExit(t *testing.T) {
	profiles, err := jsonfile.Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)

	engine, err := onboarding.NewEngine(onboarding.Config{RetryInterval: time.Millisecond}, onboarding.Dependencies{
		Store:    profiles,
		Registry: profiles,
	}, nil)
	require.NoError(t, err)

	returning := &model.Profile{Codename: "Sly Comet", RealName: "Robin"}
	in := strings.NewReader("exit\nthis line is never read\n")
	var out bytes.Buffer
	err = run(context.Background(), engine, onboarding.SessionContext{SessionID: "t1", Returning: returning}, in, &out)
	require.NoError(t, err)

	transcript := out.String()
	assert.True(t, strings.HasPrefix(transcript, "HQ> "))
	assert.Contains(t, transcript, "Sly Comet")
	assert.Equal(t, 1, strings.Count(transcript, "\n> "), "one prompt before the conversation ended")
}

func TestRunReturnsAtEOF(t *testing.T) {
	profiles, err := jsonfile.Open(filepath.Join(t.TempDir(), "agents.json"))
	require.NoError(t, err)

	engine, err := onboarding.NewEngine(onboarding.Config{}, onboarding.Dependencies{
		Store:    profiles,
		Registry: profiles,
	}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), engine, onboarding.SessionContext{SessionID: "t2"}, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "HQ> ")
}
