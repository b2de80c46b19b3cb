package synology

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by every FileStation operation invoked
// without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a failure reported by the remote API in its response envelope.
type APIError struct {
	API    string
	Method string
	Code   int
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if desc := DescribeErrorCode(e.API, e.Code); desc != "" {
		return fmt.Sprintf("%s %s failed: error code %d (%s)", e.API, e.Method, e.Code, desc)
	}
	return fmt.Sprintf("%s %s failed: error code %d", e.API, e.Method, e.Code)
}

// HTTPError is a non-2xx response from the appliance.
type HTTPError struct {
	API        string
	Method     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http status %d", e.API, e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http status %d: %s", e.API, e.Method, e.StatusCode, e.Body)
}

var commonErrorCodes = map[int]string{
	100: "unknown error",
	101: "no parameter of API, method or version",
	102: "the requested API does not exist",
	103: "the requested method does not exist",
	104: "the requested version does not support the functionality",
	105: "the logged in session does not have permission",
	106: "session timeout",
	107: "session interrupted by duplicate login",
	119: "SID not found",
}

var authErrorCodes = map[int]string{
	400: "no such account or incorrect password",
	401: "account disabled",
	402: "permission denied",
	403: "2-step verification code required",
	404: "failed to authenticate 2-step verification code",
}

var fileStationErrorCodes = map[int]string{
	400: "invalid parameter of file operation",
	401: "unknown error of file operation",
	402: "system is too busy",
	403: "invalid user does this file operation",
	404: "invalid group does this file operation",
	405: "invalid user and group does this file operation",
	406: "can't get user/group information from the account server",
	407: "operation not permitted",
	408: "no such file or directory",
	409: "non-supported file system",
	410: "failed to connect internet-based file system",
	411: "read-only file system",
	412: "filename too long in the non-encrypted file system",
	413: "filename too long in the encrypted file system",
	414: "file already exists",
	415: "disk quota exceeded",
	416: "no space left on device",
	417: "input/output error",
	418: "illegal name or path",
	419: "illegal file name",
	420: "illegal file name on FAT file system",
	421: "device or resource busy",
	599: "no such task of the file operation",
}

// DescribeErrorCode returns the documented meaning of a FileStation or Auth
// error code, or "" when the code is unknown.
func DescribeErrorCode(api string, code int) string {
	if desc, ok := commonErrorCodes[code]; ok {
		return desc
	}
	if api == apiAuth {
		return authErrorCodes[code]
	}
	return fileStationErrorCodes[code]
}
