package model

// Action names accepted by the sync protocol endpoint.
const (
	ActionListSheetNames = "listSheetNames"
	ActionGetData        = "getData"
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
)

// SyncRequest is the single envelope shared by every protocol action. Which
// fields are required depends on the action; the dispatcher validates
// per-action preconditions before routing.
type SyncRequest struct {
	Action    string            `json:"action"`
	SheetName string            `json:"sheetName,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	RowIndex  int               `json:"rowIndex,omitempty"`
	Range     string            `json:"range,omitempty"`
	NoCache   bool              `json:"noCache,omitempty"`
}

// Record is one decoded sheet row: header name to cell value, plus the
// derived 1-based sheet position under the reserved "_rowIndex" key.
// The index is only valid for the snapshot it was read from; concurrent
// structural changes by other writers can shift rows underneath it.
type Record map[string]interface{}

// RowIndexKey is the reserved record field carrying a row's 1-based sheet
// position (header row counted as row 1, so the first data row is 2).
const RowIndexKey = "_rowIndex"

// DataResponse is the result envelope for getData.
type DataResponse struct {
	Headers []string `json:"headers"`
	Rows    []Record `json:"rows"`
}

// MutationResponse is the result envelope for create, update, and delete.
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
