package synology

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ListFiles lists folderPath. A reported failure is not an error: check
// Success on the result.
func (c *Client) ListFiles(ctx context.Context, folderPath string) (*ListResponse, error) {
	params, err := c.withSession(apiParams(apiList, "2", "list"))
	if err != nil {
		return nil, err
	}
	params.Set("folder_path", folderPath)

	body, err := c.get(ctx, endpointEntry, params)
	if err != nil {
		return nil, err
	}
	var out ListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		c.logger.Error("list response is not JSON", zap.String("folder_path", folderPath), zap.Error(err))
		return nil, fmt.Errorf("%s list: decode response: %w", apiList, err)
	}
	return &out, nil
}

// ReadFile downloads filePath into memory.
func (c *Client) ReadFile(ctx context.Context, filePath string) ([]byte, error) {
	params, err := c.withSession(apiParams(apiDownload, "2", "download"))
	if err != nil {
		return nil, err
	}
	params.Set("path", filePath)
	return c.get(ctx, endpointEntry, params)
}

// WriteFile uploads content as folderPath/fileName, creating parent folders
// and overwriting an existing file. The content is staged in a temporary
// file which is removed whatever the outcome.
func (c *Client) WriteFile(ctx context.Context, folderPath, fileName string, content []byte) (bool, error) {
	sid := c.session()
	if sid == "" {
		return false, ErrNotAuthenticated
	}

	staged, err := c.stage(content)
	if err != nil {
		c.logger.Error("staging upload failed", zap.String("file", fileName), zap.Error(err))
		return false, err
	}
	defer func() {
		if rmErr := c.fs.Remove(staged); rmErr != nil {
			c.logger.Warn("removing staged upload failed", zap.String("path", staged), zap.Error(rmErr))
		}
	}()

	fields := apiParams(apiUpload, "2", "upload")
	fields.Set("path", folderPath)
	fields.Set("create_parents", "true")
	fields.Set("overwrite", "true")
	fields.Set("_sid", sid)

	body, contentType, err := c.uploadBody(fields, staged, fileName)
	if err != nil {
		c.logger.Error("building upload body failed", zap.String("file", fileName), zap.Error(err))
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpointEntry, body)
	if err != nil {
		return false, fmt.Errorf("%s upload: build request: %w", apiUpload, err)
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req, apiUpload, "upload")
	if err != nil {
		return false, err
	}
	env, err := c.decodeEnvelope(raw, apiUpload, "upload")
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

func (c *Client) stage(content []byte) (string, error) {
	f, err := afero.TempFile(c.fs, c.tempDir, "synolink-upload-*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = c.fs.Remove(name)
		return "", fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(name)
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return name, nil
}

// uploadBody writes the form fields in a fixed order followed by the file
// part read back from the staging file.
func (c *Client) uploadBody(fields url.Values, stagedPath, fileName string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, key := range []string{"api", "version", "method", "path", "create_parents", "overwrite", "_sid"} {
		if err := writer.WriteField(key, fields.Get(key)); err != nil {
			return nil, "", err
		}
	}

	src, err := c.fs.Open(stagedPath)
	if err != nil {
		return nil, "", fmt.Errorf("open staging file: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("copy staging file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}

// CreateFolder creates name under parentPath.
func (c *Client) CreateFolder(ctx context.Context, parentPath, name string) (bool, error) {
	params, err := c.withSession(apiParams(apiCreateFolder, "2", "create"))
	if err != nil {
		return false, err
	}
	params.Set("folder_path", parentPath)
	params.Set("name", name)
	return c.succeeded(ctx, params)
}

// DeleteItem deletes a file or folder.
func (c *Client) DeleteItem(ctx context.Context, path string) (bool, error) {
	params, err := c.withSession(apiParams(apiDelete, "2", "delete"))
	if err != nil {
		return false, err
	}
	params.Set("path", jsonArray(path))
	return c.succeeded(ctx, params)
}

// MoveItem moves source into the destination folder.
//
// TODO: verify api=SYNO.FileStation.CreateFolder&version=3&method=move
// against a live appliance; the documented API is SYNO.FileStation.CopyMove.
func (c *Client) MoveItem(ctx context.Context, source, destination string) (bool, error) {
	params, err := c.withSession(apiParams(apiCreateFolder, "3", "move"))
	if err != nil {
		return false, err
	}
	params.Set("path", jsonArray(source))
	params.Set("dest_folder_path", destination)
	return c.succeeded(ctx, params)
}

// GetFileInfo returns the unmodified data payload for path, including size,
// time, owner and permission attributes.
func (c *Client) GetFileInfo(ctx context.Context, path string) (json.RawMessage, error) {
	params, err := c.withSession(apiParams(apiInfo, "2", "get"))
	if err != nil {
		return nil, err
	}
	params.Set("path", path)
	params.Set("additional", jsonArray("size", "time", "owner", "perm"))

	env, err := c.call(ctx, endpointEntry, params)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, apiErrorFrom(env, apiInfo, "get")
	}
	return env.Data, nil
}

func (c *Client) succeeded(ctx context.Context, params url.Values) (bool, error) {
	env, err := c.call(ctx, endpointEntry, params)
	if err != nil {
		return false, err
	}
	return env.Success, nil
}
