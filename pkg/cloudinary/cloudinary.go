// Package cloudinary keeps deposited files as raw Cloudinary assets.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/noah-isme/testseries-api/pkg/storage"
)

const resourceTypeRaw = "raw"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type assetAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Store implements storage.Store using the Cloudinary upload API.
type Store struct {
	assets       assetAPI
	folder       string
	deliveryBase string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// New constructs a Cloudinary-backed store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Store{
		assets:       &cld.Upload,
		folder:       strings.Trim(cfg.Folder, "/"),
		deliveryBase: fmt.Sprintf("https://res.cloudinary.com/%s/%s/upload", cfg.CloudName, resourceTypeRaw),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads the file and returns its secure URL.
func (s *Store) Put(ctx context.Context, key, _ string, body io.Reader) (string, error) {
	overwrite := false
	result, err := s.assets.Upload(ctx, body, uploader.UploadParams{
		PublicID:     s.publicID(key),
		ResourceType: resourceTypeRaw,
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

// Get downloads the asset from the delivery network.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.deliveryBase+"/"+s.publicID(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, storage.ErrObjectNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download asset: status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete destroys the asset. Missing assets are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	result, err := s.assets.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.publicID(key),
		ResourceType: resourceTypeRaw,
		Invalidate:   boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("failed to destroy asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to destroy asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", s.publicID(key)).Str("result", result.Result).Msg("file removed from cloudinary")
	return nil
}

func (s *Store) publicID(key string) string {
	if s.folder == "" {
		return key
	}
	return s.folder + "/" + key
}

func boolPtr(v bool) *bool {
	return &v
}
