package item_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/supiri/internal/item"
)

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    item.Params
		setupMock func(m *item.MockRepository)
		wantErr   bool
		wantIs    error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: item.Params{Name: "Rice 5kg", Price: 150000, CostPrice: 120000, Quantity: 12},
			setupMock: func(m *item.MockRepository) {
				m.EXPECT().
					CreateItem(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, it *item.Item) error {
						it.ID = 1
						return nil
					})
			},
		},
		{
			name:    "ZeroPrice",
			params:  item.Params{Name: "Free sample"},
			wantErr: true,
			wantIs:  item.ErrInvalid,
		},
		{
			name:    "NegativeStock",
			params:  item.Params{Name: "Sugar", Price: 100, Quantity: -1},
			wantErr: true,
			wantIs:  item.ErrInvalid,
		},
		{
			name:    "MissingName",
			params:  item.Params{Price: 100},
			wantErr: true,
			wantIs:  item.ErrInvalid,
		},
		{
			name:   "RepoError",
			params: item.Params{Name: "Tea", Price: 100},
			setupMock: func(m *item.MockRepository) {
				m.EXPECT().CreateItem(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := item.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := item.NewService(repo).Create(context.Background(), tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)

				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(1), got.ID)
			assert.Equal(t, int64(150000), got.Price)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := item.NewMockRepository(ctrl)
	repo.EXPECT().GetItem(gomock.Any(), int64(4)).Return(&item.Item{ID: 4, Name: "Tea", Price: 100}, nil)
	repo.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).Return(nil)

	got, err := item.NewService(repo).Update(context.Background(), 4, item.Params{Name: "Tea", Price: 120})
	require.NoError(t, err)
	assert.Equal(t, int64(120), got.Price)
}
