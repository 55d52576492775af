package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the ledger root.
const FileName = "feeledger.yaml"

// Config represents the top-level feeledger.yaml configuration.
type Config struct {
	Institution InstitutionConfig `yaml:"institution"`
	Fees        FeesConfig        `yaml:"fees"`
	Migration   MigrationConfig   `yaml:"migration"`
	Print       PrintConfig       `yaml:"print"`
	Log         LogConfig         `yaml:"log"`
	Git         GitConfig         `yaml:"git"`
}

// InstitutionConfig is the identity printed at the top of every bill.
type InstitutionConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Address string `yaml:"address,omitempty"`
	Phone   string `yaml:"phone,omitempty"`
	Email   string `yaml:"email,omitempty" validate:"omitempty,email"`
}

// FeesConfig lists fee categories and which optional ones a bill run
// includes when --include is not given. Every included name must be a
// listed category.
type FeesConfig struct {
	Categories []string `yaml:"categories" validate:"dive,required"`
	Include    []string `yaml:"include,omitempty" validate:"dive,required"`
}

// MigrationConfig selects where the opening-balance migration report lives.
type MigrationConfig struct {
	Store string `yaml:"store" validate:"oneof=file sqlite"`
}

// PrintConfig controls bill pagination.
type PrintConfig struct {
	PerPage int `yaml:"per_page" validate:"min=1,max=16"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name" validate:"required_if=AutoCommit true"`
	AuthorEmail string `yaml:"author_email" validate:"omitempty,email"`
}

// Load reads a feeledger.yaml file from disk. Missing keys keep their
// defaults; the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(institution string) *Config {
	return &Config{
		Institution: InstitutionConfig{
			Name: institution,
		},
		Fees: FeesConfig{
			Categories: []string{"tuition", "exam", "annual", "computer", "transport"},
		},
		Migration: MigrationConfig{
			Store: "file",
		},
		Print: PrintConfig{
			PerPage: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Fee Ledger",
			AuthorEmail: "ledger@feeledger.dev",
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateFees, FeesConfig{})
	return v
}

func validateFees(sl validator.StructLevel) {
	fees := sl.Current().Interface().(FeesConfig)
	known := make(map[string]bool, len(fees.Categories))
	for _, c := range fees.Categories {
		known[strings.ToLower(strings.TrimSpace(c))] = true
	}
	for _, inc := range fees.Include {
		if n := strings.ToLower(strings.TrimSpace(inc)); n != "" && !known[n] {
			sl.ReportError(fees.Include, "include", "Include", "known_category", inc)
			return
		}
	}
}

// Validate checks field constraints. The error names each failing field
// by its YAML path, e.g. "print.per_page (max)".
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}

	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		fields[i] = fmt.Sprintf("%s (%s)", path, fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
}
