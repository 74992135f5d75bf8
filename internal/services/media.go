package services

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	BucketScreenshots = "screenshots"
	BucketVideos      = "videos"

	MaxScreenshotBytes = 10 << 20
	MaxVideoBytes      = 100 << 20

	screenshotMaxWidth    = 1920
	screenshotJPEGQuality = 85
)

func EnsureStoragePath(base string, bucket string) (string, error) {
	path := filepath.Join(base, bucket)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// SaveMediaAsset stores the bytes under the bucket and records a
// media_assets row. Returns the asset id and its content URL.
func SaveMediaAsset(db *sqlx.DB, basePath, bucket, contentType, filename, mediaType string, ownerID *string, body io.Reader) (string, string, error) {
	assetID := uuid.NewString()
	storageKey := assetID
	bucketPath, err := EnsureStoragePath(basePath, bucket)
	if err != nil {
		return "", "", err
	}
	targetPath := filepath.Join(bucketPath, storageKey)

	file, err := os.Create(targetPath)
	if err != nil {
		return "", "", err
	}
	hasher := sha256.New()
	writer := io.MultiWriter(file, hasher)
	size, err := io.Copy(writer, body)
	_ = file.Close()
	if err != nil {
		return "", "", err
	}
	if size == 0 {
		_ = os.Remove(targetPath)
		return "", "", ErrBadRequest("File is empty")
	}
	sha := hex.EncodeToString(hasher.Sum(nil))

	_, err = db.Exec(`
INSERT INTO media_assets (id, owner_user_id, bucket, storage_key, filename, type, content_type, size_bytes, sha256, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`, assetID, ownerID, bucket, storageKey, filename, mediaType, contentType, size, sha, time.Now().UTC())
	if err != nil {
		_ = os.Remove(targetPath)
		return "", "", err
	}
	return assetID, BuildAssetURL(assetID), nil
}

func BuildAssetURL(assetID string) string {
	return "/api/media/assets/" + assetID + "/content"
}

// DeleteAsset removes the row and the stored file. Returns false when the
// asset id (optionally restricted to one media type) does not exist.
func DeleteAsset(db *sqlx.DB, basePath, assetID, mediaType string) (bool, error) {
	row := struct {
		Bucket     string `db:"bucket"`
		StorageKey string `db:"storage_key"`
		Type       string `db:"type"`
	}{}
	err := db.Get(&row, `SELECT bucket, storage_key, type FROM media_assets WHERE id = $1`, assetID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if mediaType != "" && row.Type != mediaType {
		return false, nil
	}
	if _, err := db.Exec(`DELETE FROM media_assets WHERE id = $1`, assetID); err != nil {
		return false, err
	}
	_ = os.Remove(filepath.Join(basePath, row.Bucket, row.StorageKey))
	return true, nil
}

// CompressScreenshot re-encodes an uploaded image as JPEG, downscaling to
// maxWidth when wider. Alpha is flattened onto white since JPEG has no
// transparency.
func CompressScreenshot(data []byte, maxWidth int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrBadRequest("Invalid image file")
	}
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width > maxWidth {
		height = height * maxWidth / width
		if height < 1 {
			height = 1
		}
		width = maxWidth
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: screenshotJPEGQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ScreenshotMaxWidth exposes the resize bound for handlers and tests.
func ScreenshotMaxWidth() int {
	return screenshotMaxWidth
}
