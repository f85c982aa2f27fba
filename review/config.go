package review

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultClasses is the closed class set used when a config does not
// declare its own. The catch-all is always appended.
var DefaultClasses = []ConfigClass{
	{Name: "Car"},
	{Name: "Truck"},
	{Name: "Bus"},
	{Name: "Motorcycle"},
	{Name: "Bicycle"},
}

// Config describes a review project.
type Config struct {
	Meta struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
	} `yaml:"meta"`
	Classes []ConfigClass `yaml:"classes"`
	Review  ReviewConfig  `yaml:"review"`
}

// ConfigClass describes one member of the closed class set.
type ConfigClass struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ReviewConfig carries the engine tunables.
type ReviewConfig struct {
	MinBoxSize      float64 `yaml:"min_box_size"`
	HandleSize      float64 `yaml:"handle_size"`
	HandleTolerance float64 `yaml:"handle_tolerance"`
	MinROIPoints    int     `yaml:"min_roi_points"`
	HistoryLimit    int     `yaml:"history_limit"`
	SaveDebounceMS  int     `yaml:"save_debounce_ms"`
	ThumbnailSize   int     `yaml:"thumbnail_size"`
}

// LoadConfig reads and validates a project config, filling defaults in.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var ret Config
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("while parsing config %s: %w", filename, err)
	}
	if err := ret.fillDefaults(); err != nil {
		return nil, fmt.Errorf("in config %s: %w", filename, err)
	}
	return &ret, nil
}

func (c *Config) fillDefaults() error {
	if c.Meta.Title == "" {
		c.Meta.Title = "revisor"
	}
	if len(c.Classes) == 0 {
		c.Classes = append(c.Classes, DefaultClasses...)
	}
	seen := map[string]bool{}
	for _, cls := range c.Classes {
		if cls.Name == "" {
			return fmt.Errorf("class entries need a name")
		}
		if seen[cls.Name] {
			return fmt.Errorf("class %s declared twice", cls.Name)
		}
		seen[cls.Name] = true
	}
	if !seen["Other"] {
		c.Classes = append(c.Classes, ConfigClass{Name: "Other", Description: "Anything outside the listed classes"})
	}
	if c.Review.MinBoxSize <= 0 {
		c.Review.MinBoxSize = 8
	}
	if c.Review.HandleSize <= 0 {
		c.Review.HandleSize = 8
	}
	if c.Review.HandleTolerance < 0 {
		return fmt.Errorf("handle_tolerance must not be negative")
	}
	if c.Review.HandleTolerance == 0 {
		c.Review.HandleTolerance = 2
	}
	if c.Review.MinROIPoints < 3 {
		c.Review.MinROIPoints = 3
	}
	if c.Review.HistoryLimit <= 0 {
		c.Review.HistoryLimit = 100
	}
	if c.Review.SaveDebounceMS <= 0 {
		c.Review.SaveDebounceMS = 1500
	}
	if c.Review.ThumbnailSize <= 0 {
		c.Review.ThumbnailSize = 256
	}
	return nil
}

// ClassNames returns the closed class set in declaration order.
func (c *Config) ClassNames() []string {
	names := make([]string, 0, len(c.Classes))
	for _, cls := range c.Classes {
		names = append(names, cls.Name)
	}
	return names
}

// GetClass finds a class by name.
func (c *Config) GetClass(name string) *ConfigClass {
	for i := range c.Classes {
		if c.Classes[i].Name == name {
			return &c.Classes[i]
		}
	}
	return nil
}

// WriteSample writes a starter config to a file.
func WriteSample(filename string) error {
	sample := &Config{}
	sample.Meta.Title = "Detection review"
	sample.Meta.Description = "Review and correct machine-suggested detections."
	if err := sample.fillDefaults(); err != nil {
		return err
	}
	data, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("while encoding sample config: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
