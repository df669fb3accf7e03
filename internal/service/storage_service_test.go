package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/pkg/config"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
	"github.com/classdesk/classdesk-api/pkg/storage"
)

func newStorageFixture(t *testing.T, plan models.Plan, maxSize int64) *StorageService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	plans := &mockPlanResolver{limits: billing.LimitsFor(plan)}
	return NewStorageService(store, plans, config.StorageConfig{MaxFileSizeBytes: maxSize}, nil)
}

func makeFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("file")
	require.NoError(t, err)
	return header
}

func TestStorageUploadAndDownload(t *testing.T) {
	svc := newStorageFixture(t, models.PlanProfessional, 0)
	ctx := context.Background()

	file, err := svc.Upload(ctx, "t1", makeFileHeader(t, "worksheet.pdf", "pdf bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Key, "users/t1/"))
	assert.True(t, strings.HasSuffix(file.Key, "_worksheet.pdf"))

	reader, name, err := svc.Download(ctx, "t1", file.Key)
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(content))
	assert.True(t, strings.HasSuffix(name, "worksheet.pdf"))
}

func TestStorageUploadRequiresStoragePlan(t *testing.T) {
	svc := newStorageFixture(t, models.PlanStarter, 0)

	_, err := svc.Upload(context.Background(), "t1", makeFileHeader(t, "worksheet.pdf", "pdf bytes"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlanLimit.Code, appErrors.FromError(err).Code)
}

func TestStorageUploadRejectsOversizedFile(t *testing.T) {
	svc := newStorageFixture(t, models.PlanProfessional, 4)

	_, err := svc.Upload(context.Background(), "t1", makeFileHeader(t, "big.bin", "larger than four bytes"))

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStorageUploadSanitizesFilename(t *testing.T) {
	svc := newStorageFixture(t, models.PlanProfessional, 0)

	file, err := svc.Upload(context.Background(), "t1", makeFileHeader(t, "../../etc/passwd", "nope"))

	require.NoError(t, err)
	assert.Equal(t, "passwd", file.Name)
	assert.True(t, strings.HasPrefix(file.Key, "users/t1/"))
}

func TestStorageDownloadForeignKeyIsNotFound(t *testing.T) {
	svc := newStorageFixture(t, models.PlanProfessional, 0)
	ctx := context.Background()

	file, err := svc.Upload(ctx, "t1", makeFileHeader(t, "private.pdf", "secret"))
	require.NoError(t, err)

	_, _, err = svc.Download(ctx, "t2", file.Key)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStorageDeleteForeignKeyIsNotFound(t *testing.T) {
	svc := newStorageFixture(t, models.PlanProfessional, 0)
	ctx := context.Background()

	file, err := svc.Upload(ctx, "t1", makeFileHeader(t, "private.pdf", "secret"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "t2", file.Key)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// The owner still can.
	require.NoError(t, svc.Delete(ctx, "t1", file.Key))
}
