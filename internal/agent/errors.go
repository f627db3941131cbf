package agent

import "errors"

// ErrMaxIterations is returned when the loop exhausts its iteration
// budget without the model producing a final text answer.
var ErrMaxIterations = errors.New("agent reached maximum iterations without a final response")
