package graph

import "time"

// DriveItem is the subset of the Graph driveItem resource the tools expose.
type DriveItem struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Size                 int64      `json:"size,omitempty"`
	WebURL               string     `json:"webUrl,omitempty"`
	CreatedDateTime      *time.Time `json:"createdDateTime,omitempty"`
	LastModifiedDateTime *time.Time `json:"lastModifiedDateTime,omitempty"`
	Folder               *Folder    `json:"folder,omitempty"`
	File                 *File      `json:"file,omitempty"`
	ParentReference      *ItemRef   `json:"parentReference,omitempty"`
}

// IsFolder reports whether the item is a folder facet.
func (i *DriveItem) IsFolder() bool { return i.Folder != nil }

// Folder is the folder facet of a driveItem.
type Folder struct {
	ChildCount int `json:"childCount"`
}

// File is the file facet of a driveItem.
type File struct {
	MimeType string `json:"mimeType,omitempty"`
	Hashes   *struct {
		QuickXorHash string `json:"quickXorHash,omitempty"`
		SHA256Hash   string `json:"sha256Hash,omitempty"`
	} `json:"hashes,omitempty"`
}

// ItemRef locates an item within a drive.
type ItemRef struct {
	DriveID string `json:"driveId,omitempty"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ItemList is a paged collection of drive items.
type ItemList struct {
	Value    []DriveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink,omitempty"`
}

// Drive is the subset of the Graph drive resource the tools expose.
type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	DriveType string `json:"driveType,omitempty"`
	Quota     *Quota `json:"quota,omitempty"`
}

// Quota is the storage quota facet of a drive.
type Quota struct {
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Deleted   int64  `json:"deleted"`
	State     string `json:"state,omitempty"`
}

// User is the subset of the Graph user resource needed for drive resolution.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
}

// ThumbnailSet holds the size variants Graph generates for an item.
type ThumbnailSet struct {
	ID     string     `json:"id,omitempty"`
	Small  *Thumbnail `json:"small,omitempty"`
	Medium *Thumbnail `json:"medium,omitempty"`
	Large  *Thumbnail `json:"large,omitempty"`
}

// Thumbnail is a single thumbnail variant.
type Thumbnail struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	URL    string `json:"url"`
}

type userList struct {
	Value []User `json:"value"`
}

type driveList struct {
	Value []Drive `json:"value"`
}

type thumbnailList struct {
	Value []ThumbnailSet `json:"value"`
}
