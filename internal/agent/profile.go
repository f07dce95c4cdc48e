package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompts reads system prompt overrides from dir. Each specialization
// may have a <specialization>.md file; missing files keep the built-in
// prompt. An empty dir returns no overrides.
func LoadPrompts(dir string) (map[Specialization]string, error) {
	out := make(map[Specialization]string)
	if dir == "" {
		return out, nil
	}
	for _, s := range Specializations {
		data, err := os.ReadFile(filepath.Join(dir, string(s)+".md"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", s, err)
		}
		if p := strings.TrimSpace(string(data)); p != "" {
			out[s] = p
		}
	}
	return out, nil
}
