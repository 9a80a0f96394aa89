package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/evmcrispr/evml/core/types"
)

// Config is the optional evml.toml file. Keys are the Go field names.
type Config struct {
	RPC       string   `toml:",omitempty"`
	From      string   `toml:",omitempty"`
	ChainID   uint64   `toml:",omitempty"`
	ABIDir    string   `toml:",omitempty"`
	Verbosity string   `toml:",omitempty"`
	CacheSize int      `toml:",omitempty"`
	Modules   []string `toml:",omitempty"` // loaded before the script runs
}

var defaultConfig = Config{Verbosity: "info"}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

var verbosities = []string{"trace", "debug", "info", "warn", "error"}

var configSchema = types.Object(map[string]types.JSONSchema{
	"RPC":       types.String(""),
	"From":      types.Address(),
	"ChainID":   types.Uint(),
	"ABIDir":    types.String(""),
	"Verbosity": types.Enum(verbosities...),
	"CacheSize": types.Uint(),
	"Modules":   types.Array(types.String("")),
})

func loadConfig(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	if err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	return nil
}

// validate checks the set fields against configSchema.
func (c *Config) validate() error {
	doc := map[string]any{}
	if c.RPC != "" {
		doc["RPC"] = c.RPC
	}
	if c.From != "" {
		doc["From"] = c.From
	}
	if c.ChainID != 0 {
		doc["ChainID"] = c.ChainID
	}
	if c.ABIDir != "" {
		doc["ABIDir"] = c.ABIDir
	}
	if c.Verbosity != "" {
		doc["Verbosity"] = c.Verbosity
	}
	if c.CacheSize != 0 {
		doc["CacheSize"] = c.CacheSize
	}
	if len(c.Modules) > 0 {
		doc["Modules"] = c.Modules
	}
	return types.NewValidator(nil).Validate(configSchema, doc)
}
