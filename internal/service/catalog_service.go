package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/noah-isme/testseries-api/internal/dto"
	"github.com/noah-isme/testseries-api/internal/models"
	"github.com/noah-isme/testseries-api/internal/repository"
)

const catalogSchemaURL = "test_catalog.schema.json"

//go:embed schemas/test_catalog.schema.json
var catalogSchema []byte

// CatalogService serves the test catalog and imports catalog files.
type CatalogService interface {
	List(ctx context.Context, query dto.TestListQuery) ([]dto.TestResponse, error)
	Get(ctx context.Context, id string) (dto.TestResponse, error)
	Import(ctx context.Context, payload []byte) (dto.CatalogSeedResponse, error)
	Seed(ctx context.Context, actor Actor, token string, payload []byte) (dto.CatalogSeedResponse, error)
}

type catalogService struct {
	tests     repository.TestRepository
	activity  ActivityRecorder
	validator *validator.Validate
	schema    *jsonschema.Schema
	enabled   bool
	token     string
	logger    zerolog.Logger
}

type catalogFile struct {
	Tests []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Level      string `json:"level"`
		Subject    string `json:"subject"`
		AccessType string `json:"access_type"`
		PDFLink    string `json:"pdf_link"`
	} `json:"tests"`
}

// NewCatalogService constructs the catalog service. Seeding over HTTP requires enabled and a token.
func NewCatalogService(repo repository.TestRepository, activity ActivityRecorder, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) (CatalogService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(catalogSchemaURL, bytes.NewReader(catalogSchema)); err != nil {
		return nil, fmt.Errorf("failed to load catalog schema: %w", err)
	}
	schema, err := compiler.Compile(catalogSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog schema: %w", err)
	}

	return &catalogService{
		tests:     repo,
		activity:  activity,
		validator: validate,
		schema:    schema,
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "catalog_service").Logger(),
	}, nil
}

func (s *catalogService) List(ctx context.Context, query dto.TestListQuery) ([]dto.TestResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}

	items, err := s.tests.List(ctx, repository.TestFilter{
		Level:   strings.TrimSpace(query.Level),
		Subject: strings.TrimSpace(query.Subject),
	})
	if err != nil {
		return nil, storageError("list tests", err)
	}
	return dto.NewTestResponseSlice(items), nil
}

func (s *catalogService) Get(ctx context.Context, id string) (dto.TestResponse, error) {
	item, err := s.tests.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrTestNotFound
		}
		return dto.TestResponse{}, storageError("get test", err)
	}
	return dto.NewTestResponse(item), nil
}

// Import validates a catalog document against the embedded schema and upserts it.
func (s *catalogService) Import(ctx context.Context, payload []byte) (dto.CatalogSeedResponse, error) {
	var document interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return dto.CatalogSeedResponse{}, validationError(fmt.Errorf("catalog is not valid json: %w", err))
	}
	if err := s.schema.Validate(document); err != nil {
		return dto.CatalogSeedResponse{}, validationError(err)
	}

	var file catalogFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return dto.CatalogSeedResponse{}, validationError(err)
	}

	items := make([]models.Test, 0, len(file.Tests))
	for _, entry := range file.Tests {
		accessType := strings.ToLower(strings.TrimSpace(entry.AccessType))
		if accessType == "" {
			accessType = "free"
		}
		items = append(items, models.Test{
			ID:         strings.TrimSpace(entry.ID),
			Title:      strings.TrimSpace(entry.Title),
			Level:      strings.TrimSpace(entry.Level),
			Subject:    strings.TrimSpace(entry.Subject),
			AccessType: accessType,
			PDFLink:    strings.TrimSpace(entry.PDFLink),
		})
	}

	affected, err := s.tests.UpsertBatch(ctx, items)
	if err != nil {
		return dto.CatalogSeedResponse{}, storageError("upsert tests", err)
	}

	s.logger.Info().Int64("affected", affected).Msg("test catalog imported")
	return dto.CatalogSeedResponse{Affected: affected}, nil
}

func (s *catalogService) Seed(ctx context.Context, actor Actor, token string, payload []byte) (dto.CatalogSeedResponse, error) {
	if err := requireRole(actor, RoleAdmin); err != nil {
		return dto.CatalogSeedResponse{}, err
	}
	if !s.enabled {
		return dto.CatalogSeedResponse{}, ErrSeedDisabled
	}
	if !s.validToken(token) {
		return dto.CatalogSeedResponse{}, ErrSeedUnauthorized
	}

	resp, err := s.Import(ctx, payload)
	if err != nil {
		return dto.CatalogSeedResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionCatalogSeeded,
		EntityType: "test",
		Metadata:   map[string]interface{}{"affected": resp.Affected},
	})
	return resp, nil
}

func (s *catalogService) validToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
