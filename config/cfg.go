package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	CoverConfig struct {
		Generate         bool            `yaml:"generate"`
		DefaultImagePath string          `yaml:"default_image_path" sanitize:"assure_file_access"`
		Resize           ImageResizeMode `yaml:"resize" validate:"gte=0"`
		Width            int             `yaml:"width" validate:"min=600"`
		Height           int             `yaml:"height" validate:"min=800"`
	}

	ImagesConfig struct {
		ScaleFactor float64     `yaml:"scale_factor" validate:"gte=0.0"`
		JPEGQuality int         `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
		Cover       CoverConfig `yaml:"cover"`
	}

	DocumentConfig struct {
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		TOCTitle              string       `yaml:"toc_title" validate:"required"`
		Images                ImagesConfig `yaml:"images"`
	}

	ImportConfig struct {
		DefaultLanguage string `yaml:"default_language" validate:"required,bcp47_language_tag"`
		KeepNoMatter    bool   `yaml:"keep_no_matter"`
	}

	FountainConfig struct {
		TitlePage bool `yaml:"title_page"`
	}

	HTMLConfig struct {
		EmbedMedia bool `yaml:"embed_media"`
	}

	EpubConfig struct {
		FixZip         bool   `yaml:"fix_zip"`
		StylesheetPath string `yaml:"stylesheet_path" sanitize:"assure_file_access"`
	}

	ExportConfig struct {
		Fountain FountainConfig `yaml:"fountain"`
		HTML     HTMLConfig     `yaml:"html"`
		Epub     EpubConfig     `yaml:"epub"`
	}

	ReviewConfig struct {
		DatabasePath string `yaml:"database_path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
	}

	GitHubConfig struct {
		Endpoint      string       `yaml:"endpoint" validate:"required,url"`
		Owner         string       `yaml:"owner"`
		Repository    string       `yaml:"repository"`
		Branch        string       `yaml:"branch" validate:"required"`
		User          string       `yaml:"user"`
		Token         SecretString `yaml:"token"`
		Retries       int          `yaml:"retries" validate:"min=0,max=10"`
		RetryDelaySec int          `yaml:"retry_delay_sec" validate:"min=0,max=60"`
	}

	BackupConfig struct {
		GitHub GitHubConfig `yaml:"github"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Import    ImportConfig   `yaml:"import"`
		Export    ExportConfig   `yaml:"export"`
		Review    ReviewConfig   `yaml:"review"`
		Backup    BackupConfig   `yaml:"backup"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

// RetryDelay returns configured linear backoff step.
func (c *GitHubConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
