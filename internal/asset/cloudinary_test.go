package asset_test

import (
	"context"
	"testing"

	"membership-service/internal/asset"
	"membership-service/internal/asset/assettest"
	"membership-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudinary_NotConfigured(t *testing.T) {
	cld, err := asset.NewCloudinary(config.AssetsConfig{Folder: "membership"}, quietLogger())
	require.NoError(t, err)

	_, err = cld.Upload(context.Background(), assettest.File("me.jpg"))
	assert.ErrorIs(t, err, asset.ErrUploadFailed)
	assert.ErrorIs(t, err, asset.ErrNotConfigured)

	_, err = cld.Delete(context.Background(), "membership/abc")
	assert.ErrorIs(t, err, asset.ErrDeleteFailed)
	assert.ErrorIs(t, err, asset.ErrNotConfigured)
}
