package services

import (
	"bytes"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressScreenshotDownscalesWideImages(t *testing.T) {
	src := pngBytes(t, 3000, 600)

	out, err := CompressScreenshot(src, 1920)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1920, decoded.Bounds().Dx())
	assert.Equal(t, 384, decoded.Bounds().Dy())
}

func TestCompressScreenshotKeepsSmallImages(t *testing.T) {
	src := pngBytes(t, 640, 480)

	out, err := CompressScreenshot(src, 1920)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 640, decoded.Bounds().Dx())
	assert.Equal(t, 480, decoded.Bounds().Dy())
}

func TestCompressScreenshotRejectsGarbage(t *testing.T) {
	_, err := CompressScreenshot([]byte("definitely not an image"), 1920)
	require.Error(t, err)
	serr, ok := err.(ServiceError)
	require.True(t, ok)
	assert.Equal(t, 400, serr.Status)
}

func TestCompressScreenshotExtremeAspectRatio(t *testing.T) {
	src := pngBytes(t, 4000, 1)

	out, err := CompressScreenshot(src, 1920)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1920, decoded.Bounds().Dx())
	assert.Equal(t, 1, decoded.Bounds().Dy())
}

func TestBuildAssetURL(t *testing.T) {
	assert.Equal(t, "/api/media/assets/abc/content", BuildAssetURL("abc"))
}

func TestDeleteAssetMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT bucket, storage_key, type FROM media_assets").WithArgs("a1").
		WillReturnError(sql.ErrNoRows)

	found, err := DeleteAsset(db, t.TempDir(), "a1", "video")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssetLookupFailureIsNotNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT bucket, storage_key, type FROM media_assets").WithArgs("a1").
		WillReturnError(errors.New("connection reset"))

	found, err := DeleteAsset(db, t.TempDir(), "a1", "video")
	require.Error(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssetTypeMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT bucket, storage_key, type FROM media_assets").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "storage_key", "type"}).
			AddRow(BucketScreenshots, "a1", "screenshot"))

	found, err := DeleteAsset(db, t.TempDir(), "a1", "video")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssetRemovesRow(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT bucket, storage_key, type FROM media_assets").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"bucket", "storage_key", "type"}).
			AddRow(BucketVideos, "a1", "video"))
	mock.ExpectExec("DELETE FROM media_assets").WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := DeleteAsset(db, t.TempDir(), "a1", "video")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
