package utils

import (
	"os"
	"path/filepath"

	"github.com/celima-edge/celima-isa95-bridge/pkg/entities"
	"gopkg.in/yaml.v2"
)

type config interface {
	entities.BridgeConfig | map[int]int
}

func readTextFile(filepathName string) ([]byte, error) {
	fileContent, err := os.ReadFile(filepath.Clean(filepathName))
	return fileContent, err
}

// ConfigurationParser fills the given configuration entity from a YAML file.
func ConfigurationParser[T config](filepathName string, configEntity T) (T, error) {
	fileContent, err := readTextFile(filepath.Clean(filepathName))
	if err != nil {
		return configEntity, err
	}

	err = yaml.Unmarshal(fileContent, &configEntity)
	return configEntity, err
}
