package workflow

import "errors"

// ErrNoWorkflowDir indicates the workflow directory does not exist. Callers
// that treat an absent directory as "nothing to check" match it with errors.Is.
var ErrNoWorkflowDir = errors.New("workflow directory does not exist")
