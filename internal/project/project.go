// Package project stores the image list and the named regions of interest of
// a plate-reading session in a single YAML file.
package project

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/cyber-run/floro/internal/utils"
)

// FileName is the default project file name.
const FileName = "floro-project.yaml"

const currentVersion = 1

var (
	// ErrROINotFound is returned when no ROI has the requested ID.
	ErrROINotFound = errors.New("roi not found")
	// ErrInvalidROI is returned for ROIs with fewer than two points or no area.
	ErrInvalidROI = errors.New("invalid roi")
)

// ROI is a named rectangular region drawn on the plate images.
type ROI struct {
	ID       int           `yaml:"id" json:"id"`
	DrugName string        `yaml:"drug_name" json:"drug_name"`
	Points   []image.Point `yaml:"points" json:"points"`
}

// Rect returns the rectangle spanned by the ROI points, far corner inclusive.
func (r ROI) Rect() image.Rectangle {
	if len(r.Points) == 0 {
		return image.Rectangle{}
	}
	lo, hi := r.Points[0], r.Points[0]
	for _, p := range r.Points[1:] {
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	return utils.RectFromCorners(lo, hi)
}

type document struct {
	Version int      `yaml:"version"`
	Folder  string   `yaml:"folder,omitempty"`
	Images  []string `yaml:"images"`
	NextID  int      `yaml:"next_id"`
	ROIs    []ROI    `yaml:"rois"`
}

// Project is safe for concurrent use.
type Project struct {
	mu  sync.RWMutex
	doc document
}

// New returns an empty project.
func New() *Project {
	return &Project{doc: document{Version: currentVersion, NextID: 1}}
}

// Create starts a project from the supported images directly inside folder,
// sorted by name.
func Create(folder string) (*Project, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", folder, err)
	}
	p := New()
	p.doc.Folder = folder
	for _, e := range entries {
		if e.IsDir() || !utils.IsSupportedImage(e.Name()) {
			continue
		}
		p.doc.Images = append(p.doc.Images, filepath.Join(folder, e.Name()))
	}
	slices.Sort(p.doc.Images)
	return p, nil
}

// Open reads a project file.
func Open(path string) (*Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: project path is user-provided
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}
	if doc.Version > currentVersion {
		return nil, fmt.Errorf("project %s has unsupported version %d", path, doc.Version)
	}
	if doc.Version == 0 {
		doc.Version = currentVersion
	}
	for _, r := range doc.ROIs {
		if r.ID >= doc.NextID {
			doc.NextID = r.ID + 1
		}
	}
	return &Project{doc: doc}, nil
}

// Save writes the project atomically to path.
func (p *Project) Save(path string) error {
	p.mu.RLock()
	data, err := yaml.Marshal(&p.doc)
	p.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".floro-project-*")
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Folder is the directory the image list was scanned from.
func (p *Project) Folder() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Folder
}

// Images returns the image paths in the project.
func (p *Project) Images() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.doc.Images)
}

// AddROI stores a new ROI under the next free ID.
func (p *Project) AddROI(drugName string, points []image.Point) (ROI, error) {
	if len(points) < 2 {
		return ROI{}, fmt.Errorf("%w: need two corner points, got %d", ErrInvalidROI, len(points))
	}
	roi := ROI{DrugName: normalizeName(drugName), Points: slices.Clone(points)}
	if roi.Rect().Empty() {
		return ROI{}, fmt.Errorf("%w: %v has no area", ErrInvalidROI, points)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	roi.ID = p.doc.NextID
	p.doc.NextID++
	p.doc.ROIs = append(p.doc.ROIs, roi)
	return roi, nil
}

// DeleteROI removes the ROI whose points equal points and returns its ID.
func (p *Project) DeleteROI(points []image.Point) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.doc.ROIs, func(r ROI) bool { return slices.Equal(r.Points, points) })
	if i < 0 {
		return 0, false
	}
	id := p.doc.ROIs[i].ID
	p.doc.ROIs = slices.Delete(p.doc.ROIs, i, i+1)
	return id, true
}

// DeleteROIByID removes the ROI with the given ID.
func (p *Project) DeleteROIByID(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.IndexFunc(p.doc.ROIs, func(r ROI) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrROINotFound, id)
	}
	p.doc.ROIs = slices.Delete(p.doc.ROIs, i, i+1)
	return nil
}

// UpdateDrugName renames the ROI with the given ID.
func (p *Project) UpdateDrugName(id int, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.doc.ROIs {
		if p.doc.ROIs[i].ID == id {
			p.doc.ROIs[i].DrugName = normalizeName(name)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", ErrROINotFound, id)
}

// ROIs returns all ROIs ordered by ID.
func (p *Project) ROIs() []ROI {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ROI, len(p.doc.ROIs))
	for i, r := range p.doc.ROIs {
		r.Points = slices.Clone(r.Points)
		out[i] = r
	}
	slices.SortFunc(out, func(a, b ROI) int { return a.ID - b.ID })
	return out
}

// FindByDrug returns the ROIs whose drug name matches name, ignoring case
// and Unicode normalisation differences.
func (p *Project) FindByDrug(name string) []ROI {
	fold := cases.Fold()
	want := fold.String(normalizeName(name))
	var out []ROI
	for _, r := range p.ROIs() {
		if fold.String(r.DrugName) == want {
			out = append(out, r)
		}
	}
	return out
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
