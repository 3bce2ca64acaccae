package transformer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imagemock "github.com/devix/thermoscan/internal/imagestore/mock"
	"github.com/devix/thermoscan/internal/store"
	storemock "github.com/devix/thermoscan/internal/store/mock"
	"github.com/devix/thermoscan/internal/transformer"
	"github.com/devix/thermoscan/pkg/models"
)

func newService(t *testing.T) (*transformer.Service, *storemock.MemoryStore, *imagemock.MemoryStore) {
	t.Helper()
	st := storemock.NewMemoryStore()
	images := imagemock.NewMemoryStore()
	return transformer.NewService(st, images), st, images
}

func baselineUpload() transformer.BaselineUpload {
	return transformer.BaselineUpload{
		SunnyName:    "sunny.png",
		Sunny:        []byte("sunny-bytes"),
		CloudyName:   "cloudy.png",
		Cloudy:       []byte("cloudy-bytes"),
		RainyName:    "rainy.png",
		Rainy:        []byte("rainy-bytes"),
		UploadedBy:   "B. Silva",
		UploadedDate: "2026-08-10",
		UploadedTime: "14:00",
	}
}

func TestCreate_RequiresNumber(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Create(context.Background(), transformer.CreateParams{})
	assert.Error(t, err)
}

func TestCreate_Duplicate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func TestSetBaseline_StoresAllThreeImages(t *testing.T) {
	svc, _, images := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	require.NoError(t, err)

	b, err := svc.SetBaseline(ctx, "AZ-8801", baselineUpload())
	require.NoError(t, err)

	assert.True(t, images.Has(b.SunnyImageRef))
	assert.True(t, images.Has(b.CloudyImageRef))
	assert.True(t, images.Has(b.RainyImageRef))
	assert.Equal(t, "B. Silva", b.UploadedBy)
}

func TestSetBaseline_ReuploadRemovesOldFiles(t *testing.T) {
	svc, _, images := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	require.NoError(t, err)

	first, err := svc.SetBaseline(ctx, "AZ-8801", baselineUpload())
	require.NoError(t, err)

	second, err := svc.SetBaseline(ctx, "AZ-8801", baselineUpload())
	require.NoError(t, err)

	assert.False(t, images.Has(first.SunnyImageRef))
	assert.False(t, images.Has(first.CloudyImageRef))
	assert.False(t, images.Has(first.RainyImageRef))
	assert.True(t, images.Has(second.SunnyImageRef))
}

func TestSetBaseline_UnknownTransformer(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.SetBaseline(context.Background(), "nope", baselineUpload())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBaseline_RemovesFiles(t *testing.T) {
	svc, st, images := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	require.NoError(t, err)
	b, err := svc.SetBaseline(ctx, "AZ-8801", baselineUpload())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBaseline(ctx, "AZ-8801"))

	assert.False(t, images.Has(b.SunnyImageRef))
	_, err = st.GetBaselineImageSet(ctx, "AZ-8801")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_CascadesAndRemovesFiles(t *testing.T) {
	svc, st, images := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, transformer.CreateParams{No: "AZ-8801"})
	require.NoError(t, err)
	b, err := svc.SetBaseline(ctx, "AZ-8801", baselineUpload())
	require.NoError(t, err)

	insp := &models.Inspection{TransformerNo: "AZ-8801", Status: models.StatusNoImage}
	require.NoError(t, st.CreateInspection(ctx, insp))

	ref, err := images.Save(ctx, "thermal.png", []byte("thermal-bytes"))
	require.NoError(t, err)
	require.NoError(t, st.UpsertInspectionImage(ctx, &models.InspectionImage{
		InspectionNo:  insp.No,
		TransformerNo: "AZ-8801",
		ImageRef:      ref,
	}))

	require.NoError(t, svc.Delete(ctx, "AZ-8801"))

	assert.False(t, images.Has(b.SunnyImageRef))
	assert.False(t, images.Has(ref))
	_, err = st.GetInspection(ctx, insp.No)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_Missing(t *testing.T) {
	svc, _, _ := newService(t)

	err := svc.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
