// Package clients wraps the internal HTTP APIs of sibling services consumed
// by the messaging core: the user directory and the item catalog.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// UserInfo is the directory record for one user.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// UserDirectory resolves user ids to display identities.
type UserDirectory interface {
	GetUser(ctx context.Context, userID int64) (UserInfo, error)
	BulkUsers(ctx context.Context, ids []int64) ([]UserInfo, error)
}

// UserClient talks to the user-service internal API.
type UserClient struct {
	baseURL string
	http    *http.Client
}

// NewUserClient constructs the wrapper.
func NewUserClient(baseURL string) *UserClient {
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// GetUser fetches one user.
func (u *UserClient) GetUser(ctx context.Context, userID int64) (UserInfo, error) {
	var info UserInfo
	err := u.getJSON(ctx, fmt.Sprintf("%s/internal/users/%d", u.baseURL, userID), &info)
	if err != nil {
		return UserInfo{}, err
	}
	if info.ID == 0 {
		return UserInfo{}, errors.New("user not found")
	}
	return info, nil
}

// BulkUsers fetches multiple users in one call.
func (u *UserClient) BulkUsers(ctx context.Context, ids []int64) ([]UserInfo, error) {
	if len(ids) == 0 {
		return []UserInfo{}, nil
	}
	params := make([]string, 0, len(ids))
	for _, id := range ids {
		params = append(params, strconv.FormatInt(id, 10))
	}
	endpoint := u.baseURL + "/internal/users?ids=" + url.QueryEscape(strings.Join(params, ","))

	var resp struct {
		Users []UserInfo `json:"users"`
	}
	if err := u.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (u *UserClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user-service status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
