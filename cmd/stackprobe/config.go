package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/stackprobe/browser"
	"github.com/hazyhaar/stackprobe/jobq"
	"github.com/hazyhaar/stackprobe/notify"
	"github.com/hazyhaar/stackprobe/render"
	"github.com/hazyhaar/stackprobe/rescan"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/web"
)

// appConfig is the optional YAML configuration. Every section falls back to
// its package defaults; env vars override the operational basics (see main).
type appConfig struct {
	Addr    string             `yaml:"addr"`
	DBPath  string             `yaml:"db_path"`
	Web     web.Config         `yaml:"web"`
	Passive scan.Config        `yaml:"passive"`
	Browser browser.Config     `yaml:"browser"`
	Render  render.Config      `yaml:"render"`
	Probe   render.ProbeConfig `yaml:"probe"`
	Queue   jobq.Options       `yaml:"queue"`
	Rescan  rescan.Config      `yaml:"rescan"`
	Notify  notify.Config      `yaml:"notify"`
}

// loadConfig reads a YAML file when path is non-empty; otherwise returns a
// zero config so package defaults apply.
func loadConfig(path string) (*appConfig, error) {
	var cfg appConfig
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
