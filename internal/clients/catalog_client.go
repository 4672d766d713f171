package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ItemInfo is the catalog record the messaging core needs: the item identity,
// its title for conversation previews, and its seller.
type ItemInfo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	SellerID int64  `json:"seller"`
}

// Catalog resolves item ids against the catalog service.
type Catalog interface {
	GetItem(ctx context.Context, itemID int64) (ItemInfo, error)
}

// CatalogClient talks to the catalog-service internal API.
type CatalogClient struct {
	baseURL string
	http    *http.Client
}

// NewCatalogClient constructs the wrapper.
func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// GetItem fetches one item.
func (c *CatalogClient) GetItem(ctx context.Context, itemID int64) (ItemInfo, error) {
	endpoint := fmt.Sprintf("%s/internal/items/%d", c.baseURL, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ItemInfo{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ItemInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ItemInfo{}, errors.New("item not found")
	}
	if resp.StatusCode != http.StatusOK {
		return ItemInfo{}, fmt.Errorf("catalog-service status %d", resp.StatusCode)
	}
	var item ItemInfo
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return ItemInfo{}, err
	}
	if item.ID == 0 || item.SellerID == 0 {
		return ItemInfo{}, errors.New("item has no seller configured")
	}
	return item, nil
}
