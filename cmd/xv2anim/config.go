package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/binzume/xv2anim/converter"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"gopkg.in/yaml.v2"
)

type Config struct {
	NameEncoding  string                  `yaml:"name_encoding"`
	FrameRate     float32                 `yaml:"frame_rate"`
	RotationOrder string                  `yaml:"rotation_order"`
	ValueType     string                  `yaml:"value_type"`
	Materials     converter.MaterialTable `yaml:"materials"`
}

func defaultConfig() *Config {
	return &Config{
		NameEncoding:  "utf-8",
		FrameRate:     60,
		RotationOrder: "zyx",
		ValueType:     "float32",
	}
}

func loadConfig(path string) (*Config, error) {
	conf := defaultConfig()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

func (c *Config) Encoding() (encoding.Encoding, error) {
	switch strings.ReplaceAll(strings.ToLower(c.NameEncoding), "-", "_") {
	case "", "utf_8", "utf8":
		return unicode.UTF8, nil
	case "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	}
	return nil, fmt.Errorf("unknown name encoding %q", c.NameEncoding)
}
