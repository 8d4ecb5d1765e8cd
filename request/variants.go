package request

import (
	"net/http"
	"strings"

	"github.com/dothinh115/enfyra-sdk-go/client"
)

// invocation is the tagged dispatch variant for one Execute call. The batch
// scheduler is always handed an explicit item list; it never infers batch
// intent from option shapes. Classification happens exactly once, here.
type invocation interface {
	kind() string
}

// singleCall addresses one resource, optionally by id path segment.
type singleCall struct {
	ID   string
	Body interface{}
}

// batchByID fans one request out per identifier, each addressed as a path
// segment. Only PATCH and DELETE qualify.
type batchByID struct {
	IDs  []string
	Body interface{}
}

// batchByFile fans one multipart POST out per file payload.
type batchByFile struct {
	Files []client.File
}

func (singleCall) kind() string  { return "single" }
func (batchByID) kind() string   { return "batch_ids" }
func (batchByFile) kind() string { return "batch_files" }

// classify builds the invocation variant for a call. Only
// PATCH/DELETE-with-ids and POST-with-files qualify as batch; every other
// combination is single-item. A list option supplied on a non-batch-capable
// method is reported back so the caller's mistake does not pass silently;
// DisableBatch is intentional usage and never flagged.
func classify(method string, disableBatch bool, opts ExecuteOptions, defaultBody interface{}) (invocation, bool) {
	body := defaultBody
	if opts.Body != nil {
		body = opts.Body
	}

	if disableBatch {
		return singleCall{ID: opts.ID, Body: body}, false
	}

	switch strings.ToUpper(method) {
	case http.MethodPatch, http.MethodDelete:
		if len(opts.IDs) > 0 {
			return batchByID{IDs: opts.IDs, Body: body}, false
		}
	case http.MethodPost:
		if len(opts.Files) > 0 {
			return batchByFile{Files: opts.Files}, false
		}
	}

	ignoredList := len(opts.IDs) > 0 || len(opts.Files) > 0
	return singleCall{ID: opts.ID, Body: body}, ignoredList
}
