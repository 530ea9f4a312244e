package scissor

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WriteDebugJSON 将求解结果（含每个单元的关键点与包络）输出为 JSON，便于调试或可视化。
func WriteDebugJSON(sol *Solution, path string) error {
	if sol == nil {
		return nil
	}
	data, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
