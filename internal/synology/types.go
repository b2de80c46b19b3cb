package synology

import (
	"encoding/json"
	"time"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the error object of a failed API response.
type ErrorBody struct {
	Code   int             `json:"code"`
	Errors json.RawMessage `json:"errors,omitempty"`
}

// ListResponse is the decoded SYNO.FileStation.List response, returned as-is
// so callers can inspect Success themselves.
type ListResponse struct {
	Success bool       `json:"success"`
	Data    ListData   `json:"data"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorCode returns the reported error code, or 0.
func (r *ListResponse) ErrorCode() int {
	if r == nil || r.Error == nil {
		return 0
	}
	return r.Error.Code
}

type ListData struct {
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Files  []File `json:"files"`
}

// File is a FileStation entry. Size and time can arrive either at the top
// level or under "additional" depending on the request.
type File struct {
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	IsDir      bool            `json:"isdir"`
	Size       *int64          `json:"size,omitempty"`
	Time       *FileTime       `json:"time,omitempty"`
	Additional *FileAdditional `json:"additional,omitempty"`
}

type FileAdditional struct {
	Size *int64    `json:"size,omitempty"`
	Time *FileTime `json:"time,omitempty"`
}

// FileTime holds epoch-second timestamps.
type FileTime struct {
	ATime  int64 `json:"atime"`
	MTime  int64 `json:"mtime"`
	CTime  int64 `json:"ctime"`
	CrTime int64 `json:"crtime"`
}

// SizeBytes returns the file size in bytes, 0 when the server omitted it.
func (f File) SizeBytes() int64 {
	if f.Size != nil {
		return *f.Size
	}
	if f.Additional != nil && f.Additional.Size != nil {
		return *f.Additional.Size
	}
	return 0
}

// ModTime returns the modification time and whether the server reported one.
func (f File) ModTime() (time.Time, bool) {
	t := f.Time
	if t == nil && f.Additional != nil {
		t = f.Additional.Time
	}
	if t == nil {
		return time.Time{}, false
	}
	return time.Unix(t.MTime, 0).UTC(), true
}

type loginData struct {
	SID string `json:"sid"`
}

type searchStartData struct {
	TaskID string `json:"taskid"`
}

type searchListData struct {
	Finished bool              `json:"finished"`
	Total    int               `json:"total"`
	Files    []json.RawMessage `json:"files"`
}
