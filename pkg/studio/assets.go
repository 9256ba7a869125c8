package studio

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"

	"github.com/tendant/content-studio/pkg/studio/assetkey"
)

// AssetID returns the content-addressed ID of an image.
func AssetID(sha1Hex string, width, height int, ext string) string {
	return fmt.Sprintf("image-%s-%dx%d-%s", sha1Hex, width, height, ext)
}

func extensionFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func (s *service) UploadAsset(ctx context.Context, req UploadAssetRequest) (*Asset, error) {
	if req.Reader == nil {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidAsset)
	}
	data, err := io.ReadAll(io.LimitReader(req.Reader, s.maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxAssetSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidAsset, s.maxAssetSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	sum := sha1.Sum(data)
	hash := hex.EncodeToString(sum[:])
	ext := extensionFor(format)
	id := AssetID(hash, cfg.Width, cfg.Height, ext)

	existing, err := s.repository.GetAsset(ctx, id)
	if err == nil {
		s.attachURL(ctx, existing)
		return existing, nil
	}
	if !errors.Is(err, ErrAssetNotFound) {
		return nil, &AssetError{AssetID: id, Op: "upload", Err: err}
	}

	backendName := req.StorageBackendName
	if backendName == "" {
		backendName = s.defaultBlobStore
	}
	backend, err := s.GetBackend(backendName)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "upload", Err: err}
	}

	mimeType := "image/" + format
	key := s.keyGenerator.GenerateKey(&assetkey.KeyMetadata{
		SHA1:      hash,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Extension: ext,
		FileName:  filepath.Base(req.FileName),
	})
	if err := backend.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{ObjectKey: key, MimeType: mimeType}); err != nil {
		return nil, &StorageError{Backend: backendName, Key: key, Op: "upload", Err: err}
	}

	now := s.clock()
	asset := &Asset{
		ID:                 id,
		Type:               AssetTypeImage,
		OriginalFilename:   req.FileName,
		MimeType:           mimeType,
		Extension:          ext,
		Size:               int64(len(data)),
		SHA1Hash:           hash,
		Width:              cfg.Width,
		Height:             cfg.Height,
		StorageBackendName: backendName,
		ObjectKey:          key,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		if delErr := backend.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "orphaned asset blob", "key", key, "error", delErr)
		}
		return nil, &AssetError{AssetID: id, Op: "upload", Err: err}
	}
	s.attachURL(ctx, asset)

	s.logger.DebugContext(ctx, "asset uploaded", "id", id, "backend", backendName, "size", asset.Size)
	if err := s.eventSink.AssetUploaded(ctx, asset); err != nil {
		s.logger.WarnContext(ctx, "event sink failed", "event", "asset.uploaded", "id", id, "error", err)
	}
	return asset, nil
}
