package graph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ariavn-byte/onedrive/internal/logging"
)

// DefaultListLimit caps item listings when the caller does not ask for a
// specific page size.
const DefaultListLimit = 50

// MaxListLimit is the Graph ceiling for $top on children collections.
const MaxListLimit = 200

// DriveService layers OneDrive item operations over the raw Client. It
// resolves the target user's default drive once and caches the resolution;
// all item paths are built against that drive unless the caller names
// another drive explicitly.
type DriveService struct {
	client *Client

	// userID pins the target user when configured. When empty, the first
	// user in the tenant is resolved and cached.
	userID string

	mu            sync.Mutex
	resolvedUser  string
	resolvedDrive string
}

// NewDriveService builds a DriveService. userID optionally pins the OneDrive
// owner; an empty value resolves the first user in the tenant.
func NewDriveService(client *Client, userID string) *DriveService {
	return &DriveService{client: client, userID: userID}
}

// WithUser returns a service pinned to another user's default drive, sharing
// the underlying client. The returned service resolves its drive on first use.
func (s *DriveService) WithUser(userID string) *DriveService {
	if userID == "" || userID == s.userID {
		return s
	}
	return &DriveService{client: s.client, userID: userID}
}

// resolve returns the cached user and drive IDs, performing the two-step
// lookup (user, then default drive) on first use.
func (s *DriveService) resolve(ctx context.Context) (userID, driveID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolvedDrive != "" {
		return s.resolvedUser, s.resolvedDrive, nil
	}

	uid := s.userID
	if uid == "" {
		resp, err := s.client.Call(ctx, http.MethodGet, "/users?$top=1", nil)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve tenant user: %w", err)
		}
		var users userList
		if err := resp.Decode(&users); err != nil {
			return "", "", err
		}
		if len(users.Value) == 0 {
			return "", "", fmt.Errorf("no users found in tenant")
		}
		uid = users.Value[0].ID
	}

	resp, err := s.client.Call(ctx, http.MethodGet, "/users/"+url.PathEscape(uid)+"/drives", nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to list drives for user %s: %w", uid, err)
	}
	var drives driveList
	if err := resp.Decode(&drives); err != nil {
		return "", "", err
	}
	if len(drives.Value) == 0 {
		return "", "", fmt.Errorf("user %s has no drives", uid)
	}

	s.resolvedUser = uid
	s.resolvedDrive = drives.Value[0].ID
	s.client.logger.Debug("resolved default drive",
		logging.SubjectHash(uid),
		logging.DriveID(s.resolvedDrive))
	return s.resolvedUser, s.resolvedDrive, nil
}

// DriveID returns the resolved default drive ID.
func (s *DriveService) DriveID(ctx context.Context) (string, error) {
	_, driveID, err := s.resolve(ctx)
	return driveID, err
}

// itemPath builds a drive-relative address for a folder path. The root folder
// is addressed as "root"; nested paths use the root:/path: addressing form.
func itemPath(driveID, folderPath string) string {
	base := "/drives/" + url.PathEscape(driveID)
	folderPath = strings.Trim(folderPath, "/")
	if folderPath == "" {
		return base + "/root"
	}
	segments := strings.Split(folderPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return base + "/root:/" + strings.Join(segments, "/") + ":"
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ListChildren lists items under the given folder path ("" or "/" for root).
func (s *DriveService) ListChildren(ctx context.Context, folderPath string, limit int) ([]DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	p := fmt.Sprintf("%s/children?$top=%d", itemPath(driveID, folderPath), clampLimit(limit))
	resp, err := s.client.Call(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	var list ItemList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// CreateFolder creates a folder under parentPath ("" for root). Name
// collisions are resolved by Graph's rename behavior rather than failing.
func (s *DriveService) CreateFolder(ctx context.Context, name, parentPath string) (*DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":                              name,
		"folder":                            map[string]any{},
		"@microsoft.graph.conflictBehavior": "rename",
	}
	resp, err := s.client.Call(ctx, http.MethodPost, itemPath(driveID, parentPath)+"/children", body)
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// MoveItem reparents an item to another folder within the default drive.
func (s *DriveService) MoveItem(ctx context.Context, itemID, newParentID string) (*DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return s.MoveItemInDrive(ctx, driveID, itemID, newParentID)
}

// MoveItemInDrive reparents an item within an explicitly named drive. Graph
// handles arbitrarily large items synchronously for same-drive moves since
// only the parent reference changes.
func (s *DriveService) MoveItemInDrive(ctx context.Context, driveID, itemID, newParentID string) (*DriveItem, error) {
	body := map[string]any{
		"parentReference": map[string]any{"id": newParentID},
	}
	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	resp, err := s.client.Call(ctx, http.MethodPatch, p, body)
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RenameItem changes an item's name in place.
func (s *DriveService) RenameItem(ctx context.Context, itemID, newName string) (*DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"name": newName}
	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	resp, err := s.client.Call(ctx, http.MethodPatch, p, body)
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item (file or folder) by ID.
func (s *DriveService) DeleteItem(ctx context.Context, itemID string) error {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return err
	}

	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	_, err = s.client.Call(ctx, http.MethodDelete, p, nil)
	return err
}

// SearchItems searches the drive for items matching the query.
func (s *DriveService) SearchItems(ctx context.Context, query string, limit int) ([]DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	p := fmt.Sprintf("/drives/%s/root/search(q='%s')?$top=%d",
		url.PathEscape(driveID), url.PathEscape(strings.ReplaceAll(query, "'", "''")), clampLimit(limit))
	resp, err := s.client.Call(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	var list ItemList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// GetItem fetches a single item's metadata by ID.
func (s *DriveService) GetItem(ctx context.Context, itemID string) (*DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID)
	resp, err := s.client.Call(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DownloadContent fetches an item's raw content. Graph answers the /content
// request with a redirect to a pre-authenticated URL, which the HTTP client
// follows transparently.
func (s *DriveService) DownloadContent(ctx context.Context, itemID string) ([]byte, string, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, "", err
	}

	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID) + "/content"
	resp, err := s.client.Call(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// UploadContent uploads file content to the given path under the drive root,
// creating or replacing the item. Suitable for content up to the simple
// upload ceiling (4 MB); larger payloads need an upload session.
func (s *DriveService) UploadContent(ctx context.Context, filePath, contentType string, content io.Reader) (*DriveItem, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Upload(ctx, itemPath(driveID, filePath)+"/content", contentType, content)
	if err != nil {
		return nil, err
	}

	var item DriveItem
	if err := resp.Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Thumbnails lists the thumbnail sets generated for an item.
func (s *DriveService) Thumbnails(ctx context.Context, itemID string) ([]ThumbnailSet, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	p := "/drives/" + url.PathEscape(driveID) + "/items/" + url.PathEscape(itemID) + "/thumbnails"
	resp, err := s.client.Call(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}

	var list thumbnailList
	if err := resp.Decode(&list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// GetQuota fetches the storage quota of the default drive.
func (s *DriveService) GetQuota(ctx context.Context) (*Drive, error) {
	_, driveID, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Call(ctx, http.MethodGet, "/drives/"+url.PathEscape(driveID), nil)
	if err != nil {
		return nil, err
	}

	var drive Drive
	if err := resp.Decode(&drive); err != nil {
		return nil, err
	}
	return &drive, nil
}
