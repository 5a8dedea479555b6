package server_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/testseries-api/internal/config"
	"github.com/noah-isme/testseries-api/internal/server"
	"github.com/noah-isme/testseries-api/pkg/localstore"
	"github.com/noah-isme/testseries-api/pkg/s3store"
)

func TestNewStoreSelectsDriver(t *testing.T) {
	store, err := server.NewStore(config.Config{StorageDriver: config.StorageDriverLocal, StorageLocalDir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &localstore.Store{}, store)

	store, err = server.NewStore(config.Config{StorageDriver: config.StorageDriverS3, S3Bucket: "sheets", S3Region: "ap-south-1"}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &s3store.Store{}, store)

	_, err = server.NewStore(config.Config{StorageDriver: config.StorageDriverCloudinary}, zerolog.Nop())
	require.ErrorContains(t, err, "cloudinary credentials")

	_, err = server.NewStore(config.Config{StorageDriver: "ftp"}, zerolog.Nop())
	require.ErrorContains(t, err, "unsupported storage driver")
}

func TestNewRequiresInfrastructure(t *testing.T) {
	_, err := server.New(config.Config{}, server.Infrastructure{}, zerolog.Nop())
	require.ErrorContains(t, err, "database connection")
}
