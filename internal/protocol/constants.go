package protocol

const (
	ServerName    = "synolink-server"
	ServerVersion = "0.1.0"
)

const (
	ToolNameLogin        = "login"
	ToolNameLogout       = "logout"
	ToolNameListFiles    = "list_files"
	ToolNameReadFile     = "read_file"
	ToolNameWriteFile    = "write_file"
	ToolNameCreateFolder = "create_folder"
	ToolNameDeleteItem   = "delete_item"
	ToolNameMoveItem     = "move_item"
	ToolNameGetFileInfo  = "get_file_info"
	ToolNameSearchFiles  = "search_files"
)

const (
	ErrorCodeInvalidField     = "INVALID_FIELD"
	ErrorCodeMissingField     = "MISSING_FIELD"
	ErrorCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrorCodeRemoteFailure    = "REMOTE_FAILURE"
	ErrorCodeTransport        = "TRANSPORT_ERROR"
	ErrorCodeMethodNotFound   = "METHOD_NOT_FOUND"
	ErrorCodeInternal         = "INTERNAL_ERROR"
)

const (
	DefaultSynologyHost = "localhost"
	DefaultSynologyPort = 5000
)
