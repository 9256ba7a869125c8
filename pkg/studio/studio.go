package studio

import (
	"slices"

	"github.com/tendant/content-studio/pkg/studio/schema"
	"github.com/tendant/content-studio/pkg/studio/schematypes"
)

// Defaults of the tagalog-now studio.
const (
	DefaultName      = "default"
	DefaultTitle     = "tagalog-now-studio"
	DefaultProjectID = "72ntt3vc"
	DefaultDataset   = "production"

	// DefaultVisionAPIVersion is the query API version the vision console
	// reports when none is configured.
	DefaultVisionAPIVersion = "v2021-10-21"
)

// PluginName identifies a studio plugin.
type PluginName string

const (
	PluginStructure PluginName = "structure"
	PluginVision    PluginName = "vision"
)

// Plugin is an enabled studio extension.
type Plugin struct {
	Name  PluginName `json:"name" yaml:"name"`
	Title string     `json:"title" yaml:"title"`
	// APIVersion is only meaningful for the vision console.
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
}

// StructureTool returns the content-structure browser plugin.
func StructureTool() Plugin {
	return Plugin{Name: PluginStructure, Title: "Structure"}
}

// VisionTool returns the query console plugin.
func VisionTool() Plugin {
	return Plugin{Name: PluginVision, Title: "Vision", APIVersion: DefaultVisionAPIVersion}
}

// SchemaConfig holds the registered document types.
type SchemaConfig struct {
	Types *schema.Registry
}

// Config is the studio configuration. It is a plain value; DefineConfig
// returns a copy that does not share the plugin list with its input.
type Config struct {
	Name      string
	Title     string
	ProjectID string
	Dataset   string
	Plugins   []Plugin
	Schema    SchemaConfig
}

// DefineConfig fills empty identity fields with the defaults and returns
// the resulting configuration.
func DefineConfig(c Config) Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.ProjectID == "" {
		c.ProjectID = DefaultProjectID
	}
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	c.Plugins = slices.Clone(c.Plugins)
	if c.Schema.Types == nil {
		c.Schema.Types = schematypes.Types()
	}
	return c
}

// NewStudioConfig returns the tagalog-now studio: the structure and vision
// plugins and the author, category and post document types, bound to the
// given project and dataset.
func NewStudioConfig(projectID, dataset string) Config {
	return DefineConfig(Config{
		Name:      DefaultName,
		Title:     DefaultTitle,
		ProjectID: projectID,
		Dataset:   dataset,
		Plugins:   []Plugin{StructureTool(), VisionTool()},
		Schema:    SchemaConfig{Types: schematypes.Types()},
	})
}

// Plugin returns the enabled plugin with the given name.
func (c Config) Plugin(name PluginName) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// HasPlugin reports whether the plugin is enabled.
func (c Config) HasPlugin(name PluginName) bool {
	_, ok := c.Plugin(name)
	return ok
}

// Summary is the JSON view of the configuration served to clients.
type Summary struct {
	Name      string   `json:"name" yaml:"name"`
	Title     string   `json:"title" yaml:"title"`
	ProjectID string   `json:"projectId" yaml:"projectId"`
	Dataset   string   `json:"dataset" yaml:"dataset"`
	Plugins   []Plugin `json:"plugins" yaml:"plugins"`
	Types     []string `json:"types" yaml:"types"`
}

// Summary describes the configuration without the full schema.
func (c Config) Summary() Summary {
	s := Summary{
		Name:      c.Name,
		Title:     c.Title,
		ProjectID: c.ProjectID,
		Dataset:   c.Dataset,
		Plugins:   slices.Clone(c.Plugins),
	}
	if c.Schema.Types != nil {
		s.Types = c.Schema.Types.Names()
	}
	if s.Plugins == nil {
		s.Plugins = []Plugin{}
	}
	return s
}
