package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/docharvest/config"
	"github.com/use-agent/docharvest/models"
	"github.com/ysmood/gson"
)

func TestMainFrameIdle(t *testing.T) {
	match := mainFrameIdle("main")

	tests := []struct {
		name  string
		event proto.PageLifecycleEvent
		want  bool
	}{
		{"main frame idle", proto.PageLifecycleEvent{FrameID: "main", Name: proto.PageLifecycleEventNameNetworkIdle}, true},
		{"iframe idle", proto.PageLifecycleEvent{FrameID: "ad-frame", Name: proto.PageLifecycleEventNameNetworkIdle}, false},
		{"main frame load", proto.PageLifecycleEvent{FrameID: "main", Name: proto.PageLifecycleEventNameLoad}, false},
		{"main frame almost idle", proto.PageLifecycleEvent{FrameID: "main", Name: proto.PageLifecycleEventNameNetworkAlmostIdle}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, match(&tt.event))
		})
	}
}

func TestLaunchRod_MissingBinary(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:   true,
		BrowserBin: filepath.Join(t.TempDir(), "no-such-chrome"),
	}

	eng, err := LaunchRod(context.Background(), cfg)

	require.Error(t, err)
	assert.Nil(t, eng)
	assert.Equal(t, models.ErrCodeBrowserCrash, models.CodeOf(err))
}

func TestJSONString(t *testing.T) {
	assert.Equal(t, "", jsonString(gson.New(nil)))
	assert.Equal(t, "text", jsonString(gson.New("text")))
}
