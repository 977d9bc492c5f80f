package domain

import (
	"fmt"
	"strings"
	"time"
)

// Visibility scopes who may download a shared file. Listings are open
// to every member; the restriction applies to the file itself.
type Visibility string

const (
	VisibilityMembers Visibility = "members"
	VisibilityAdmins  Visibility = "admins"
)

// ParseVisibility validates a visibility value coming off the wire. An
// empty value defaults to members.
func ParseVisibility(value string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return VisibilityMembers, nil
	case VisibilityMembers:
		return VisibilityMembers, nil
	case VisibilityAdmins:
		return VisibilityAdmins, nil
	}
	return "", fmt.Errorf("unknown visibility %q", value)
}

// RequiredRole returns the minimum role needed to download the file.
func (v Visibility) RequiredRole() Role {
	if v == VisibilityAdmins {
		return RoleAdmin
	}
	return RoleMember
}

// Paper is a shared publication in the library: a link, an uploaded
// file, or both.
type Paper struct {
	ID         int64
	Title      string
	Link       string
	Tags       string
	Summary    string
	UploaderID int64
	FileName   string
	FileBytes  []byte
	CreatedAt  time.Time
}

// HasFile reports whether a file was uploaded with the paper.
func (p Paper) HasFile() bool {
	return p.FileName != ""
}

// Dataset is a shared dataset in the library. Unlike papers, dataset
// downloads are gated by their visibility.
type Dataset struct {
	ID          int64
	Title       string
	Description string
	Link        string
	Tags        string
	Visibility  Visibility
	UploaderID  int64
	FileName    string
	FileBytes   []byte
	CreatedAt   time.Time
}

// HasFile reports whether a file was uploaded with the dataset.
func (d Dataset) HasFile() bool {
	return d.FileName != ""
}
