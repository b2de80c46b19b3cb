package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"synolink/internal/metrics"
	"synolink/internal/protocol"
	"synolink/internal/synology"
)

const listTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var toolOrder = []string{
	protocol.ToolNameLogin,
	protocol.ToolNameLogout,
	protocol.ToolNameListFiles,
	protocol.ToolNameReadFile,
	protocol.ToolNameWriteFile,
	protocol.ToolNameCreateFolder,
	protocol.ToolNameDeleteItem,
	protocol.ToolNameMoveItem,
	protocol.ToolNameGetFileInfo,
	protocol.ToolNameSearchFiles,
}

type toolHandler func(context.Context, map[string]interface{}) (toolCallResult, *toolExecutionError)

type toolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	handler     toolHandler            `json:"-"`
}

type toolCallResult struct {
	Content           []toolContentItem `json:"content"`
	StructuredContent interface{}       `json:"structuredContent,omitempty"`
	IsError           bool              `json:"isError,omitempty"`
}

type toolContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type toolExecutionError struct {
	Code      string
	Message   string
	Retryable bool
}

// listEntry is the simplified projection rendered by list_files.
type listEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
	Time  string `json:"time"`
}

func (s *Server) buildToolRegistry() map[string]toolDefinition {
	return map[string]toolDefinition{
		protocol.ToolNameLogin: {
			Name:        protocol.ToolNameLogin,
			Description: "Log in to the Synology NAS. Call this before using any other tool.",
			InputSchema: objectSchema(
				stringField{"username", "Synology NAS login user name"},
				stringField{"password", "Synology NAS login password"},
			),
			handler: s.handleLoginTool,
		},
		protocol.ToolNameLogout: {
			Name:        protocol.ToolNameLogout,
			Description: "Log out of the Synology NAS.",
			InputSchema: objectSchema(),
			handler:     s.handleLogoutTool,
		},
		protocol.ToolNameListFiles: {
			Name:        protocol.ToolNameListFiles,
			Description: "List the files and folders at the given path.",
			InputSchema: objectSchema(
				stringField{"path", "Folder path to list (e.g. /volume1/photos)"},
			),
			handler: s.handleListFilesTool,
		},
		protocol.ToolNameReadFile: {
			Name:        protocol.ToolNameReadFile,
			Description: "Read a file from the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"path", "Full path of the file to read"},
			),
			handler: s.handleReadFileTool,
		},
		protocol.ToolNameWriteFile: {
			Name:        protocol.ToolNameWriteFile,
			Description: "Save a file to the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"path", "Full path to save the file to"},
				stringField{"content", "Content to write to the file"},
			),
			handler: s.handleWriteFileTool,
		},
		protocol.ToolNameCreateFolder: {
			Name:        protocol.ToolNameCreateFolder,
			Description: "Create a new folder on the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"path", "Parent path to create the folder in"},
				stringField{"name", "Name of the folder to create"},
			),
			handler: s.handleCreateFolderTool,
		},
		protocol.ToolNameDeleteItem: {
			Name:        protocol.ToolNameDeleteItem,
			Description: "Delete a file or folder on the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"path", "Full path of the file or folder to delete"},
			),
			handler: s.handleDeleteItemTool,
		},
		protocol.ToolNameMoveItem: {
			Name:        protocol.ToolNameMoveItem,
			Description: "Move a file or folder on the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"source", "Current path of the file or folder to move"},
				stringField{"destination", "Destination folder path"},
			),
			handler: s.handleMoveItemTool,
		},
		protocol.ToolNameGetFileInfo: {
			Name:        protocol.ToolNameGetFileInfo,
			Description: "Get detailed information about a file or folder on the Synology NAS.",
			InputSchema: objectSchema(
				stringField{"path", "Full path of the file or folder to inspect"},
			),
			handler: s.handleGetFileInfoTool,
		},
		protocol.ToolNameSearchFiles: {
			Name:        protocol.ToolNameSearchFiles,
			Description: "Search the Synology NAS for files or folders matching a pattern.",
			InputSchema: objectSchema(
				stringField{"path", "Folder path to start the search from"},
				stringField{"pattern", "File name pattern to search for"},
			),
			handler: s.handleSearchFilesTool,
		},
	}
}

// catalog returns the registered tools in their fixed order.
func (s *Server) catalog() []toolDefinition {
	tools := make([]toolDefinition, 0, len(s.tools))
	for _, name := range toolOrder {
		if tool, ok := s.tools[name]; ok {
			tools = append(tools, tool)
		}
	}
	if len(tools) == len(s.tools) {
		return tools
	}

	seen := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		seen[tool.Name] = struct{}{}
	}
	extra := make([]string, 0, len(s.tools)-len(tools))
	for name := range s.tools {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		tools = append(tools, s.tools[name])
	}
	return tools
}

// callTool is the invocation boundary: every failure, including a panic in a
// handler, leaves here as an error result.
func (s *Server) callTool(ctx context.Context, name string, args map[string]interface{}) (result toolCallResult) {
	outcome := metrics.OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool handler panicked", zap.String("tool", name), zap.Any("panic", r))
			outcome = metrics.OutcomeError
			result = newToolErrorResult(toolExecutionError{
				Code:    protocol.ErrorCodeInternal,
				Message: fmt.Sprintf("%s: internal error", name),
			})
		}
		label := name
		if _, known := s.tools[name]; !known {
			label = "unknown"
		}
		s.metrics.ObserveToolCall(label, outcome)
	}()

	tool, ok := s.tools[name]
	if !ok {
		outcome = metrics.OutcomeRejected
		return newToolErrorResult(toolExecutionError{
			Code:    protocol.ErrorCodeMethodNotFound,
			Message: fmt.Sprintf("unknown tool: %s", name),
		})
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	res, toolErr := tool.handler(ctx, args)
	if toolErr != nil {
		outcome = outcomeFor(toolErr.Code)
		s.logger.Warn("tool call failed",
			zap.String("tool", name), zap.String("code", toolErr.Code), zap.String("message", toolErr.Message))
		return newToolErrorResult(*toolErr)
	}
	return res
}

func outcomeFor(code string) string {
	switch code {
	case protocol.ErrorCodeInvalidField, protocol.ErrorCodeMissingField, protocol.ErrorCodeNotAuthenticated:
		return metrics.OutcomeRejected
	case protocol.ErrorCodeRemoteFailure:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeError
	}
}

func newToolErrorResult(toolErr toolExecutionError) toolCallResult {
	text := fmt.Sprintf("ERROR: %s: %s", toolErr.Code, toolErr.Message)
	return toolCallResult{
		IsError: true,
		Content: []toolContentItem{
			{Type: "text", Text: text},
		},
		StructuredContent: map[string]interface{}{
			"error": map[string]interface{}{
				"code":      toolErr.Code,
				"message":   toolErr.Message,
				"retryable": toolErr.Retryable,
			},
		},
	}
}

func textResult(text string) toolCallResult {
	return toolCallResult{
		Content: []toolContentItem{
			{Type: "text", Text: text},
		},
	}
}

func sentence(ok bool, success, failure string) toolCallResult {
	if ok {
		return textResult(success)
	}
	return textResult(failure)
}

func (s *Server) handleLoginTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameLogin, args, "username", "password")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	ok := s.client.Login(ctx, vals["username"], vals["password"])
	return sentence(ok,
		"Logged in to the Synology NAS.",
		"Synology NAS login failed. Check the username and password.",
	), nil
}

func (s *Server) handleLogoutTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	if _, toolErr := parseArguments(protocol.ToolNameLogout, args); toolErr != nil {
		return toolCallResult{}, toolErr
	}
	ok := s.client.Logout(ctx)
	return sentence(ok,
		"Logged out of the Synology NAS.",
		"An error occurred while logging out.",
	), nil
}

func (s *Server) handleListFilesTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameListFiles, args, "path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	path := vals["path"]

	res, err := s.client.ListFiles(ctx, path)
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	if !res.Success {
		return toolCallResult{}, &toolExecutionError{
			Code:    protocol.ErrorCodeRemoteFailure,
			Message: fmt.Sprintf("failed to list files: error code %d", res.ErrorCode()),
		}
	}

	entries := make([]listEntry, 0, len(res.Data.Files))
	for _, f := range res.Data.Files {
		entries = append(entries, projectFile(f))
	}
	body, err := indentJSON(entries)
	if err != nil {
		return toolCallResult{}, renderError(err)
	}
	return textResult("Items in \"" + path + "\":\n\n" + body), nil
}

func projectFile(f synology.File) listEntry {
	entry := listEntry{
		Name:  f.Name,
		Path:  f.Path,
		IsDir: f.IsDir,
		Size:  f.SizeBytes(),
	}
	if mt, ok := f.ModTime(); ok {
		entry.Time = formatModTime(mt)
	}
	return entry
}

func (s *Server) handleReadFileTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameReadFile, args, "path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	data, err := s.client.ReadFile(ctx, vals["path"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	return textResult(decodeUTF8Lossy(data)), nil
}

func (s *Server) handleWriteFileTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameWriteFile, args, "path", "content")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	path := vals["path"]
	folder, name := splitUploadPath(path)

	ok, err := s.client.WriteFile(ctx, folder, name, []byte(vals["content"]))
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	return sentence(ok, "File saved: "+path, "Failed to save the file."), nil
}

// decodeUTF8Lossy replaces every byte that does not start a valid sequence
// with U+FFFD.
func decodeUTF8Lossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}

// splitUploadPath splits at the last slash. The folder falls back to "/".
func splitUploadPath(path string) (folder, name string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "/", path
	}
	folder, name = path[:idx], path[idx+1:]
	if folder == "" {
		folder = "/"
	}
	return folder, name
}

func (s *Server) handleCreateFolderTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameCreateFolder, args, "path", "name")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	ok, err := s.client.CreateFolder(ctx, vals["path"], vals["name"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	return sentence(ok,
		fmt.Sprintf("Folder created: %s/%s", vals["path"], vals["name"]),
		"Failed to create the folder.",
	), nil
}

func (s *Server) handleDeleteItemTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameDeleteItem, args, "path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	ok, err := s.client.DeleteItem(ctx, vals["path"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	return sentence(ok, "Item deleted: "+vals["path"], "Failed to delete the item."), nil
}

func (s *Server) handleMoveItemTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameMoveItem, args, "source", "destination")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	ok, err := s.client.MoveItem(ctx, vals["source"], vals["destination"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	return sentence(ok,
		fmt.Sprintf("Item moved: %s -> %s", vals["source"], vals["destination"]),
		"Failed to move the item.",
	), nil
}

func (s *Server) handleGetFileInfoTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameGetFileInfo, args, "path")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	info, err := s.client.GetFileInfo(ctx, vals["path"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	body, err := indentJSON(info)
	if err != nil {
		return toolCallResult{}, renderError(err)
	}
	return textResult("File info:\n\n" + body), nil
}

func (s *Server) handleSearchFilesTool(ctx context.Context, args map[string]interface{}) (toolCallResult, *toolExecutionError) {
	vals, toolErr := parseArguments(protocol.ToolNameSearchFiles, args, "path", "pattern")
	if toolErr != nil {
		return toolCallResult{}, toolErr
	}
	files, err := s.client.SearchFiles(ctx, vals["path"], vals["pattern"])
	if err != nil {
		return toolCallResult{}, mapClientError(err)
	}
	if files == nil {
		files = []json.RawMessage{}
	}
	body, err := indentJSON(files)
	if err != nil {
		return toolCallResult{}, renderError(err)
	}
	return textResult("Search results:\n\n" + body), nil
}

// parseArguments checks args against the tool's fixed set of required string
// fields. Values are returned untrimmed; empty strings are accepted.
func parseArguments(tool string, args map[string]interface{}, fields ...string) (map[string]string, *toolExecutionError) {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	if err := assertNoUnknownArguments(args, allowed); err != nil {
		return nil, argumentError(tool, protocol.ErrorCodeInvalidField, err)
	}

	vals := make(map[string]string, len(fields))
	for _, f := range fields {
		v, present, err := parseRequiredString(args, f)
		if err != nil {
			return nil, argumentError(tool, protocol.ErrorCodeInvalidField, err)
		}
		if !present {
			return nil, argumentError(tool, protocol.ErrorCodeMissingField, fmt.Errorf("%s is required", f))
		}
		vals[f] = v
	}
	return vals, nil
}

func argumentError(tool, code string, err error) *toolExecutionError {
	return &toolExecutionError{
		Code:    code,
		Message: fmt.Sprintf("%s arguments invalid: %s", tool, err.Error()),
	}
}

func assertNoUnknownArguments(args map[string]interface{}, allowed map[string]struct{}) error {
	unknown := make([]string, 0)
	for key := range args {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown argument: %s", strings.Join(unknown, ", "))
}

func parseRequiredString(args map[string]interface{}, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("%s must be a string", key)
	}
	return value, true, nil
}

func mapClientError(err error) *toolExecutionError {
	if errors.Is(err, synology.ErrNotAuthenticated) {
		return &toolExecutionError{
			Code:    protocol.ErrorCodeNotAuthenticated,
			Message: "not logged in: call the login tool first",
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &toolExecutionError{Code: protocol.ErrorCodeTransport, Message: err.Error(), Retryable: true}
	}
	var apiErr *synology.APIError
	if errors.As(err, &apiErr) {
		return &toolExecutionError{Code: protocol.ErrorCodeRemoteFailure, Message: err.Error()}
	}
	var httpErr *synology.HTTPError
	if errors.As(err, &httpErr) {
		return &toolExecutionError{
			Code:      protocol.ErrorCodeTransport,
			Message:   err.Error(),
			Retryable: httpErr.StatusCode >= 500,
		}
	}
	return &toolExecutionError{Code: protocol.ErrorCodeTransport, Message: err.Error(), Retryable: true}
}

func renderError(err error) *toolExecutionError {
	return &toolExecutionError{Code: protocol.ErrorCodeInternal, Message: fmt.Sprintf("render result: %v", err)}
}

// indentJSON renders v with two-space indentation and without HTML escaping.
func indentJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

type stringField struct {
	name        string
	description string
}

func objectSchema(fields ...stringField) map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		properties[f.name] = map[string]interface{}{
			"type":        "string",
			"description": f.description,
		}
		required = append(required, f.name)
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func formatModTime(t time.Time) string {
	return t.UTC().Format(listTimeLayout)
}
