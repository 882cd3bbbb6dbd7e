package services

import (
	"archive/zip"
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifier-service/internal/models"
)

func zipArchive(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestPredictArchiveMixedResults(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)
	batch := NewBatchService(svc, 4, svc.metrics)

	good := encodePNG(t, 64, 64, color.NRGBA{R: 33, G: 99, B: 66, A: 255})
	tiny := encodePNG(t, 8, 8, color.NRGBA{R: 1, A: 255})
	archive := zipArchive(t, map[string][]byte{
		"good.png":   good,
		"tiny.png":   tiny,
		"ignore.txt": []byte("not an image"),
	})

	result, err := batch.PredictArchive(context.Background(), archive, "photos.zip")
	require.NoError(t, err)

	assert.Equal(t, 2, result.FileCount, "non-image entries are not counted")
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 2)

	byName := make(map[string]models.BatchFileResult)
	for _, r := range result.Results {
		byName[r.Filename] = r
	}
	require.Contains(t, byName, "good.png")
	require.Contains(t, byName, "tiny.png")
	assert.True(t, byName["good.png"].Success)
	assert.Equal(t, "tabby cat", byName["good.png"].Predictions[0].ClassName)
	assert.False(t, byName["tiny.png"].Success)
	assert.Equal(t, "InvalidImageError", byName["tiny.png"].ErrorType)
}

func TestPredictArchiveDeduplicatesIdenticalImages(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)
	batch := NewBatchService(svc, 4, svc.metrics)

	img := encodePNG(t, 64, 64, color.NRGBA{R: 120, G: 30, B: 200, A: 255})
	archive := zipArchive(t, map[string][]byte{
		"a.png": img,
		"b.png": img,
		"c.png": img,
	})

	result, err := batch.PredictArchive(context.Background(), archive, "dupes.zip")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, int32(1), engine.calls.Load(), "identical images share one inference")
}

func TestPredictArchiveRejectsUnknownExtension(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)
	batch := NewBatchService(svc, 2, svc.metrics)

	_, err := batch.PredictArchive(context.Background(), []byte("whatever"), "upload.exe")
	require.Error(t, err)
	var fileErr *models.FileError
	assert.ErrorAs(t, err, &fileErr)
}

func TestPredictArchiveNoImages(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)
	batch := NewBatchService(svc, 2, svc.metrics)

	archive := zipArchive(t, map[string][]byte{"readme.txt": []byte("empty")})
	_, err := batch.PredictArchive(context.Background(), archive, "empty.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files")
}

func TestIsArchiveFilename(t *testing.T) {
	assert.True(t, IsArchiveFilename("photos.zip"))
	assert.True(t, IsArchiveFilename("PHOTOS.ZIP"))
	assert.True(t, IsArchiveFilename("backup.tar.gz"))
	assert.True(t, IsArchiveFilename("old.rar"))
	assert.False(t, IsArchiveFilename("image.png"))
	assert.False(t, IsArchiveFilename("archive"))
}
