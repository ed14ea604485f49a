package task

import (
	"encoding/json"
	"fmt"
	"os"
)

// Outcome is the supervisor's verdict on an exited worker.
type Outcome struct {
	State  State
	Result *string
	Error  *string
}

// Classify reads the output file of an exited worker. The file content
// decides the outcome; the exit code only matters when the file is absent.
func Classify(outputPath string, exitCode int) Outcome {
	data, err := os.ReadFile(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return failed(fmt.Sprintf("Worker exited with code %d (no output)", exitCode))
		}
		return failed(fmt.Sprintf("Failed to parse output: %v", err))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return failed(fmt.Sprintf("Failed to parse output: %v", err))
	}
	if raw == nil {
		return failed("Failed to parse output: output is not a JSON object")
	}

	status := State(stringify(raw["status"]))
	if status != StateCompleted && status != StateFailed {
		return failed(fmt.Sprintf("Worker returned invalid status: %s", status))
	}

	out := Outcome{State: status}
	if v, ok := raw["result"]; ok && v != nil {
		out.Result = Str(stringify(v))
	}
	if v, ok := raw["error"]; ok && v != nil {
		out.Error = Str(stringify(v))
	}
	return out
}

func failed(msg string) Outcome {
	return Outcome{State: StateFailed, Error: &msg}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
