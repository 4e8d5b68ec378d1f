package main

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"vesta/lib/properties"
	"vesta/vesta"
)

var Command = &cobra.Command{
	Use:          "vesta",
	Short:        "vesta stream engine",
	Long:         `vesta runs source, operator and sink pipelines declared in a config file.`,
	SilenceUsage: true,
}

// load reads a config file like "conf/pipeline.yaml"
func load(configFilePath string) (vesta.Properties, error) {
	ext := filepath.Ext(configFilePath)
	if ext == "" {
		return nil, errors.Errorf("config file %s has no extension", configFilePath)
	}
	name := strings.TrimSuffix(filepath.Base(configFilePath), ext)
	return properties.Load(name, ext[1:], filepath.Dir(configFilePath))
}
