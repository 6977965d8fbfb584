package service

import (
	"context"
	"errors"
	"testing"

	"stationery/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.vendorSvc.Create(ctx, dto.VendorRequest{
		Name:      "City Stationers",
		Email:     " Sales@City.example ",
		GSTNumber: "29abcde1234f1z5",
	})
	require.NoError(t, err)
	assert.Equal(t, "sales@city.example", v.Email)
	assert.Equal(t, "29ABCDE1234F1Z5", v.GSTNumber)
	assert.True(t, v.Active)

	_, err = f.vendorSvc.Create(ctx, dto.VendorRequest{Name: "City Stationers"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, "Vendor with this name already exists", err.Error())

	id := uuid.MustParse(v.ID)
	updated, err := f.vendorSvc.Update(ctx, id, dto.VendorRequest{Name: "City Stationers", Phone: "12345"})
	require.NoError(t, err)
	assert.Equal(t, "12345", updated.Phone)

	require.NoError(t, f.vendorSvc.Delete(ctx, id))

	active, err := f.vendorSvc.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := f.vendorSvc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	got, err := f.vendorSvc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestVendorRenameCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.vendor(t, "Alpha Supplies")
	beta := f.vendor(t, "Beta Supplies")

	_, err := f.vendorSvc.Update(ctx, beta.ID, dto.VendorRequest{Name: "Alpha Supplies"})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	_, err = f.vendorSvc.Update(ctx, uuid.New(), dto.VendorRequest{Name: "Gamma"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(f.vendorSvc.Delete(ctx, uuid.New()), ErrNotFound))
}
