package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	t.Run("should list allocations from the envelope", func(t *testing.T) {
		orderID := uuid.New()
		allocationID := uuid.New()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/allocations", r.URL.Path)
			assert.Equal(t, orderID.String(), r.URL.Query().Get("order_id"))
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": []map[string]any{
					{"id": allocationID.String(), "part_name": "Fuse 2A", "quantity": "2"},
				},
			})
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "test-token", nil)
		allocations, err := client.ListAllocations(context.Background(), orderID)
		require.NoError(t, err)
		require.Len(t, allocations, 1)
		assert.Equal(t, allocationID, allocations[0].ID)
		assert.Equal(t, "Fuse 2A", allocations[0].PartName)
	})

	t.Run("should surface the API error code and message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error": map[string]any{
					"code":    "ERR_INSUFFICIENT_STOCK",
					"message": "Insufficient stock",
				},
			})
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "", nil)
		_, err := client.CreateAllocation(context.Background(), CreateAllocation{
			LineID:      uuid.New(),
			StockItemID: uuid.New(),
			Quantity:    5,
		})
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, "ERR_INSUFFICIENT_STOCK", apiErr.Code)
		assert.Equal(t, "Insufficient stock", apiErr.Error())
	})

	t.Run("should treat 204 as success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "", nil)
		assert.NoError(t, client.DeleteAllocation(context.Background(), uuid.New()))
	})
}
