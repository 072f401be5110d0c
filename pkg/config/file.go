package lconfig

import (
	"io"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"
)

// LoadStaticYamlConfig reads a YAML file from the given filesystem into
// target. Used for file-backed configuration such as dataset definitions.
func LoadStaticYamlConfig(filename string, filesystem afero.Fs, target interface{}) error {
	file, err := filesystem.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(content, target)
}
