package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readInput decodifica un archivo JSON o YAML ("-" lee stdin como JSON) en out.
// YAML pasa por JSON para respetar los tags json y los UnmarshalJSON de los DTO.
func readInput(path string, stdin io.Reader, out any) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("leer %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("yaml %s: %w", path, err)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("yaml %s a json: %w", path, err)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("json %s: %w", path, err)
	}
	return nil
}
