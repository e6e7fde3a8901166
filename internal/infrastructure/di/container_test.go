package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagegateway "github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	appconfig "github.com/YoshitsuguKoike/rehearsal/internal/app/config"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
)

const cafeYAML = `id: cafe
title: The Cafe
characters:
  - role: human
    name: Ann
  - role: ai
    name: Bob
    persona: A cheerful barista
lines:
  - speaker: human
    text: One flat white, please.
  - speaker: ai
    text: Coming right up.
  - speaker: human
    text: Thank you so much.
`

func testValues(t *testing.T) appconfig.Values {
	dir := t.TempDir()
	return appconfig.Values{
		Home:                     dir,
		SessionStore:             "sqlite",
		DBPath:                   filepath.Join(dir, "rehearsal.db"),
		SceneSource:              "file",
		SceneDir:                 "/scenes",
		S3Prefix:                 "scenes/",
		Generator:                "scripted",
		ResponseMode:             "generated",
		GenerationTimeoutSec:     5,
		GenerationRetries:        1,
		MaxConcurrentGenerations: 2,
		AcceptanceThreshold:      0.8,
		MaxRetries:               2,
		HistoryWindow:            6,
		OrderTolerance:           0.5,
		LockMode:                 "reject",
		StderrLevel:              "warn",
		ConfigSource:             "default",
	}
}

func runScene(t *testing.T, c *Container) {
	t.Helper()
	ctx := context.Background()
	uc := c.GetRehearsalUseCase()

	scenes, err := uc.ListScenes(ctx)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "cafe", scenes[0].ID)

	start, err := uc.StartSession(ctx, dto.StartSessionInput{UserID: "ann", SceneID: "cafe"})
	require.NoError(t, err)
	id := start.State.SessionID

	out, err := uc.SubmitDelivery(ctx, dto.SubmitDeliveryInput{SessionID: id, Transcript: "One flat white please"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", out.Delivery.Verdict)
	require.Len(t, out.AILines, 1)
	assert.Equal(t, "Coming right up.", out.AILines[0].Text, "the scripted generator speaks the canonical line")
	assert.False(t, out.AILines[0].Fallback)

	out, err = uc.SubmitDelivery(ctx, dto.SubmitDeliveryInput{SessionID: id, Transcript: "Thank you so much"})
	require.NoError(t, err)
	assert.Equal(t, "completed", out.State.Status)

	history, err := uc.ListDeliveries(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history.Deliveries, 3)
}

func TestContainer_SQLiteAndFileScenes(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/scenes", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/scenes/cafe.yaml", []byte(cafeYAML), 0o644))

	values := testValues(t)
	c, err := NewContainer(context.Background(), Config{
		Settings: appconfig.NewAppConfig(values),
		Logger:   app.NopLogger(),
		Fs:       fs,
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.GetGenerationGateway())
	assert.Equal(t, 2, c.GetGenerationLimiter().Stats().Max)
	assert.Equal(t, "/scenes", c.GetSceneRepository().Location())

	runScene(t, c)

	// Sessions survive a restart
	require.NoError(t, c.Close())
	reopened, err := NewContainer(context.Background(), Config{
		Settings: appconfig.NewAppConfig(values),
		Logger:   app.NopLogger(),
		Fs:       fs,
	})
	require.NoError(t, err)
	defer reopened.Close()
}

func TestContainer_MemoryStoreAndS3Scenes(t *testing.T) {
	client := storagegateway.NewMockS3Client()
	s3Store := storagegateway.NewS3StorageGatewayWithClient(client, "rehearsal-scenes", "scenes/")
	require.NoError(t, s3Store.WriteDocument(context.Background(), "cafe.yaml", []byte(cafeYAML)))

	values := testValues(t)
	values.SessionStore = "memory"
	values.SceneSource = "s3"
	values.S3Bucket = "rehearsal-scenes"

	c, err := NewContainer(context.Background(), Config{
		Settings: appconfig.NewAppConfig(values),
		Logger:   app.NopLogger(),
		S3Client: client,
	})
	require.NoError(t, err)
	defer c.Close()

	runScene(t, c)
}

func TestContainer_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *appconfig.Values)
	}{
		{"unknown session store", func(v *appconfig.Values) { v.SessionStore = "redis" }},
		{"unknown scene source", func(v *appconfig.Values) { v.SceneSource = "ftp" }},
		{"s3 without bucket", func(v *appconfig.Values) { v.SceneSource = "s3"; v.S3Bucket = "" }},
		{"unknown generator", func(v *appconfig.Values) { v.Generator = "claude" }},
		{"zero concurrency", func(v *appconfig.Values) { v.MaxConcurrentGenerations = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := testValues(t)
			tt.mutate(&values)
			_, err := NewContainer(context.Background(), Config{
				Settings: appconfig.NewAppConfig(values),
				Logger:   app.NopLogger(),
				Fs:       afero.NewMemMapFs(),
			})
			assert.Error(t, err)
		})
	}
}
