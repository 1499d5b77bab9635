package cook

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports task parameters that failed the recipe's declared
// schema. It lists every violation; no remote request is made when it occurs.
type ValidationError struct {
	RecipeID   string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameters invalid for recipe %s: %s", e.RecipeID, strings.Join(e.Violations, "; "))
}

// RemoteServiceError is a non-2xx response from the Cook service
type RemoteServiceError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("cook %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// TimeoutError is returned by WaitUntil when the target state was not reached
// within the allotted time
type TimeoutError struct {
	TaskID  string
	State   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s did not reach state %q within %s", e.TaskID, e.State, e.Timeout)
}
