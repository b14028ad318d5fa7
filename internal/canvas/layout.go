// Package canvas is a file-backed host document: a YAML layout of artboards
// and layers drawn over a raster source page.
package canvas

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/attnmap/internal/aoi"
)

// Layout is the document as stored on disk
type Layout struct {
	Source    string     `yaml:"source"`
	Selection []string   `yaml:"selection,omitempty"`
	Artboards []Artboard `yaml:"artboards"`
}

// Artboard is a container placed on a source page. Frame is in page points.
type Artboard struct {
	ID     string    `yaml:"id"`
	Name   string    `yaml:"name"`
	Page   int       `yaml:"page"`
	Frame  aoi.Frame `yaml:"frame"`
	Layers []Layer   `yaml:"layers,omitempty"`
}

// Layer is a node inside an artboard. Frame is relative to the artboard.
type Layer struct {
	ID     string    `yaml:"id"`
	Type   LayerType `yaml:"type"`
	Name   string    `yaml:"name"`
	Frame  aoi.Frame `yaml:"frame"`
	Fill   string    `yaml:"fill,omitempty"`
	Hidden bool      `yaml:"hidden,omitempty"`
	Locked bool      `yaml:"locked,omitempty"`
	Image  string    `yaml:"image,omitempty"`
	Layers []Layer   `yaml:"layers,omitempty"`
}

type LayerType string

const (
	TypeRectangle LayerType = "rectangle"
	TypeOval      LayerType = "oval"
	TypePath      LayerType = "path"
	TypeText      LayerType = "text"
	TypeImage     LayerType = "image"
	TypeGroup     LayerType = "group"
	TypeShape     LayerType = "shape"
	TypeTriangle  LayerType = "triangle"
	TypeStar      LayerType = "star"
	TypePolygon   LayerType = "polygon"
	TypeLine      LayerType = "line"
)

var knownTypes = map[LayerType]bool{
	TypeRectangle: true,
	TypeOval:      true,
	TypePath:      true,
	TypeText:      true,
	TypeImage:     true,
	TypeGroup:     true,
	TypeShape:     true,
	TypeTriangle:  true,
	TypeStar:      true,
	TypePolygon:   true,
	TypeLine:      true,
}

func (t *LayerType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if !knownTypes[LayerType(s)] {
		return fmt.Errorf("line %d: unknown layer type %q", value.Line, s)
	}
	*t = LayerType(s)
	return nil
}

// Kind maps the layer type onto the shape variants the pipeline knows.
func (t LayerType) Kind() aoi.ShapeKind {
	if t == TypeRectangle {
		return aoi.KindRectangle
	}
	return aoi.KindOther
}

// ReadLayout reads and checks a layout file.
func ReadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := layout.check(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return &layout, nil
}

// WriteLayout writes the layout atomically.
func WriteLayout(layout *Layout, path string) error {
	data, err := yaml.Marshal(layout)
	if err != nil {
		return err
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (l *Layout) check() error {
	if l.Source == "" {
		return fmt.Errorf("source is required")
	}
	seen := map[string]bool{}
	var walk func(layers []Layer) error
	walk = func(layers []Layer) error {
		for _, layer := range layers {
			if layer.ID == "" {
				return fmt.Errorf("layer %q has no id", layer.Name)
			}
			if seen[layer.ID] {
				return fmt.Errorf("duplicate id %q", layer.ID)
			}
			seen[layer.ID] = true
			if err := walk(layer.Layers); err != nil {
				return err
			}
		}
		return nil
	}
	for _, ab := range l.Artboards {
		if ab.ID == "" {
			return fmt.Errorf("artboard %q has no id", ab.Name)
		}
		if seen[ab.ID] {
			return fmt.Errorf("duplicate id %q", ab.ID)
		}
		seen[ab.ID] = true
		if ab.Page < 0 {
			return fmt.Errorf("artboard %q: negative page", ab.ID)
		}
		if err := walk(ab.Layers); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) artboard(id string) (*Artboard, bool) {
	for i := range l.Artboards {
		if l.Artboards[i].ID == id {
			return &l.Artboards[i], true
		}
	}
	return nil, false
}

// layer finds a layer by id anywhere in the tree.
func (l *Layout) layer(id string) (*Layer, bool) {
	var find func(layers []Layer) *Layer
	find = func(layers []Layer) *Layer {
		for i := range layers {
			if layers[i].ID == id {
				return &layers[i]
			}
			if found := find(layers[i].Layers); found != nil {
				return found
			}
		}
		return nil
	}
	for i := range l.Artboards {
		if found := find(l.Artboards[i].Layers); found != nil {
			return found, true
		}
	}
	return nil, false
}
